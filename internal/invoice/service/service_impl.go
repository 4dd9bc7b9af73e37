package service

import (
	"context"
	"errors"
	"strings"

	invoicedomain "github.com/aquadesk/aquadesk/internal/invoice/domain"
	"github.com/aquadesk/aquadesk/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	invoicerepo repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		invoicerepo: repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

// Upsert converges the draft onto the row keyed by Number. An UPCOMING
// row is refreshed so reruns settle on the latest computed amount; a row
// a reviewer has already advanced is never written back to UPCOMING.
func (s *Service) Upsert(ctx context.Context, draft invoicedomain.Invoice) (*invoicedomain.Invoice, bool, error) {
	if strings.TrimSpace(draft.Number) == "" {
		return nil, false, invoicedomain.ErrMissingNumber
	}
	if draft.AccountID == 0 {
		return nil, false, invoicedomain.ErrMissingAccount
	}

	var result *invoicedomain.Invoice
	emitted := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.invoicerepo.WithTrx(tx)

		existing, err := repo.FindOne(ctx, &invoicedomain.Invoice{Number: draft.Number})
		if err != nil {
			return err
		}

		if existing == nil {
			draft.ID = s.genID.Generate()
			draft.Status = invoicedomain.InvoiceStatusUpcoming
			if err := repo.Create(ctx, &draft); err != nil {
				// A concurrent run may have inserted the same number first.
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					existing, err = repo.FindOne(ctx, &invoicedomain.Invoice{Number: draft.Number})
					if err != nil {
						return err
					}
					result = existing
					return nil
				}
				return err
			}
			result = &draft
			emitted = true
			return nil
		}

		if existing.Status != invoicedomain.InvoiceStatusUpcoming {
			s.log.Info("invoice.already_reconciled",
				zap.String("number", existing.Number),
				zap.String("status", string(existing.Status)),
			)
			result = existing
			return nil
		}

		updates := map[string]any{
			"amount":       draft.Amount,
			"description":  draft.Description,
			"issued_at":    draft.IssuedAt,
			"period_start": draft.PeriodStart,
			"period_end":   draft.PeriodEnd,
		}
		if err := repo.Update(ctx, existing.ID.String(), updates); err != nil {
			return err
		}

		existing.Amount = draft.Amount
		existing.Description = draft.Description
		existing.IssuedAt = draft.IssuedAt
		existing.PeriodStart = draft.PeriodStart
		existing.PeriodEnd = draft.PeriodEnd
		result = existing
		emitted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return result, emitted, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*invoicedomain.Invoice, error) {
	if strings.TrimSpace(number) == "" {
		return nil, invoicedomain.ErrMissingNumber
	}
	return s.invoicerepo.FindOne(ctx, &invoicedomain.Invoice{Number: number})
}
