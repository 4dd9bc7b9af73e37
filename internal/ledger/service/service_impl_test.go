package service

import (
	"context"
	"testing"
	"time"

	"github.com/aquadesk/aquadesk/internal/config"
	ledgerdomain "github.com/aquadesk/aquadesk/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (ledgerdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.CreditTransaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := config.NewBillingConfigHolderFor(config.DefaultBillingConfig())
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Billing: holder,
	})
	return svc, db
}

func TestRecordBranchConsumption_DebitsAtConfiguredRate(t *testing.T) {
	svc, _ := newTestService(t)

	txn, recorded, err := svc.RecordBranchConsumption(context.Background(), ledgerdomain.BranchConsumption{
		ParentAccountID: 1,
		BranchAccountID: 2,
		CycleKey:        "202407",
		Liters:          decimal.RequireFromString("487.5"),
		OccurredAt:      time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, ledgerdomain.DirectionDebit, txn.Direction)

	// 487.5 L * 2.00/L
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("975")), "got %s", txn.Amount)
}

func TestRecordBranchConsumption_IdempotentPerBranchCycle(t *testing.T) {
	svc, db := newTestService(t)

	consumption := ledgerdomain.BranchConsumption{
		ParentAccountID: 1,
		BranchAccountID: 2,
		CycleKey:        "202407",
		Liters:          decimal.RequireFromString("100"),
		OccurredAt:      time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	first, recorded, err := svc.RecordBranchConsumption(context.Background(), consumption)
	require.NoError(t, err)
	require.True(t, recorded)

	second, recorded, err := svc.RecordBranchConsumption(context.Background(), consumption)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.CreditTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordBranchConsumption_ZeroLitersIsNoOp(t *testing.T) {
	svc, db := newTestService(t)

	txn, recorded, err := svc.RecordBranchConsumption(context.Background(), ledgerdomain.BranchConsumption{
		ParentAccountID: 1,
		BranchAccountID: 2,
		CycleKey:        "202407",
		Liters:          decimal.Zero,
	})
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.Nil(t, txn)

	var count int64
	require.NoError(t, db.Model(&ledgerdomain.CreditTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRecordBranchConsumption_RejectsMissingKeys(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.RecordBranchConsumption(context.Background(), ledgerdomain.BranchConsumption{
		BranchAccountID: 2, CycleKey: "202407", Liters: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrMissingParentAccount)

	_, _, err = svc.RecordBranchConsumption(context.Background(), ledgerdomain.BranchConsumption{
		ParentAccountID: 1, CycleKey: "202407", Liters: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrMissingBranchAccount)

	_, _, err = svc.RecordBranchConsumption(context.Background(), ledgerdomain.BranchConsumption{
		ParentAccountID: 1, BranchAccountID: 2, Liters: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrMissingCycleKey)
}
