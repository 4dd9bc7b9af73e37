package service

import (
	"context"
	"errors"

	"github.com/aquadesk/aquadesk/internal/config"
	ledgerdomain "github.com/aquadesk/aquadesk/internal/ledger/domain"
	"github.com/aquadesk/aquadesk/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Billing *config.BillingConfigHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	billing *config.BillingConfigHolder

	txnrepo repository.Repository[ledgerdomain.CreditTransaction]
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		billing: p.Billing,

		txnrepo: repository.ProvideStore[ledgerdomain.CreditTransaction](p.DB),
	}
}

func (s *Service) RecordBranchConsumption(ctx context.Context, consumption ledgerdomain.BranchConsumption) (*ledgerdomain.CreditTransaction, bool, error) {
	if consumption.ParentAccountID == 0 {
		return nil, false, ledgerdomain.ErrMissingParentAccount
	}
	if consumption.BranchAccountID == 0 {
		return nil, false, ledgerdomain.ErrMissingBranchAccount
	}
	if consumption.CycleKey == "" {
		return nil, false, ledgerdomain.ErrMissingCycleKey
	}
	if consumption.Liters.IsZero() {
		return nil, false, nil
	}

	rate := s.billing.Get().DebitRate()

	var result *ledgerdomain.CreditTransaction
	recorded := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.txnrepo.WithTrx(tx)

		existing, err := repo.FindOne(ctx, &ledgerdomain.CreditTransaction{
			BranchAccountID: consumption.BranchAccountID,
			CycleKey:        consumption.CycleKey,
		})
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		txn := ledgerdomain.CreditTransaction{
			ID:              s.genID.Generate(),
			ParentAccountID: consumption.ParentAccountID,
			BranchAccountID: consumption.BranchAccountID,
			CycleKey:        consumption.CycleKey,
			Liters:          consumption.Liters,
			RatePerLiter:    rate,
			Amount:          consumption.Liters.Mul(rate),
			Direction:       ledgerdomain.DirectionDebit,
			OccurredAt:      consumption.OccurredAt,
		}
		if err := repo.Create(ctx, &txn); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				existing, err = repo.FindOne(ctx, &ledgerdomain.CreditTransaction{
					BranchAccountID: consumption.BranchAccountID,
					CycleKey:        consumption.CycleKey,
				})
				if err != nil {
					return err
				}
				result = existing
				return nil
			}
			return err
		}

		result = &txn
		recorded = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if recorded {
		s.log.Info("ledger.branch_consumption_recorded",
			zap.String("branch_account_id", consumption.BranchAccountID.String()),
			zap.String("cycle", consumption.CycleKey),
			zap.String("liters", consumption.Liters.String()),
			zap.String("amount", result.Amount.String()),
		)
	}
	return result, recorded, nil
}
