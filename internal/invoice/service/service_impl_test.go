package service

import (
	"context"
	"testing"
	"time"

	invoicedomain "github.com/aquadesk/aquadesk/internal/invoice/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (invoicedomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return svc, db
}

func draftFor(number string, amount string) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		AccountID:   42,
		Number:      number,
		Amount:      decimal.RequireFromString(amount),
		Description: "Water Consumption for July 2024",
		IssuedAt:    time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		PeriodStart: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestUpsert_CreatesUpcoming(t *testing.T) {
	svc, db := newTestService(t)

	inv, emitted, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "1462.50"))
	require.NoError(t, err)
	assert.True(t, emitted)
	assert.Equal(t, invoicedomain.InvoiceStatusUpcoming, inv.Status)
	assert.NotZero(t, inv.ID)

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsert_RerunRefreshesUpcomingRow(t *testing.T) {
	svc, db := newTestService(t)

	first, emitted, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "1462.50"))
	require.NoError(t, err)
	require.True(t, emitted)

	// Late delivery entry changed the computed amount before the rerun.
	second, emitted, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "1521.00"))
	require.NoError(t, err)
	assert.True(t, emitted)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(decimal.RequireFromString("1521.00")))

	var count int64
	require.NoError(t, db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsert_NeverDowngradesReviewedInvoice(t *testing.T) {
	svc, db := newTestService(t)

	first, _, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "1462.50"))
	require.NoError(t, err)

	require.NoError(t, db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", first.ID).
		Update("status", invoicedomain.InvoiceStatusPaid).Error)

	result, emitted, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "9999.00"))
	require.NoError(t, err)
	assert.False(t, emitted)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, result.Status)
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("1462.50")), "got %s", result.Amount)
}

func TestUpsert_RejectsIncompleteDraft(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Upsert(context.Background(), invoicedomain.Invoice{AccountID: 42})
	assert.ErrorIs(t, err, invoicedomain.ErrMissingNumber)

	_, _, err = svc.Upsert(context.Background(), invoicedomain.Invoice{Number: "INV-AQ0001-202407"})
	assert.ErrorIs(t, err, invoicedomain.ErrMissingAccount)
}

func TestGetByNumber(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Upsert(context.Background(), draftFor("INV-AQ0001-202407", "1462.50"))
	require.NoError(t, err)

	found, err := svc.GetByNumber(context.Background(), "INV-AQ0001-202407")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "INV-AQ0001-202407", found.Number)

	missing, err := svc.GetByNumber(context.Background(), "INV-AQ9999-202407")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
