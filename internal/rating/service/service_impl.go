package service

import (
	"context"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/aquadesk/aquadesk/internal/billingcycle"
	"github.com/aquadesk/aquadesk/internal/config"
	deliverydomain "github.com/aquadesk/aquadesk/internal/delivery/domain"
	ratingdomain "github.com/aquadesk/aquadesk/internal/rating/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log     *zap.Logger
	Billing *config.BillingConfigHolder
}

type Service struct {
	log     *zap.Logger
	billing *config.BillingConfigHolder
}

func NewService(p ServiceParam) ratingdomain.Service {
	return &Service{
		log:     p.Log.Named("rating.service"),
		billing: p.Billing,
	}
}

// ComputeCharge prices one account for one cycle. Consumption plans bill
// delivered liters at the per-liter rate; fixed plans bill the flat fee
// regardless of volume. Delivery status does not gate billing: every
// in-window record counts.
func (s *Service) ComputeCharge(
	ctx context.Context,
	account accountdomain.Account,
	cycle billingcycle.Cycle,
	deliveries []deliverydomain.Delivery,
	pending []accountdomain.PendingCharge,
) (*ratingdomain.Charge, error) {
	_ = ctx

	if account.Role == accountdomain.AccountRoleAdmin || !account.HasPlan() {
		return nil, nil
	}
	if account.Plan.Price.IsNegative() {
		return nil, ratingdomain.ErrInvalidPlanPrice
	}

	cfg := s.billing.Get()

	var charge ratingdomain.Charge
	if account.Plan.ConsumptionBased {
		inWindow := lo.Filter(deliveries, func(d deliverydomain.Delivery, _ int) bool {
			return cycle.Contains(d.DeliveredAt)
		})
		containers := lo.SumBy(inWindow, func(d deliverydomain.Delivery) int64 {
			return d.Containers
		})
		if containers == 0 {
			// Zero-usage months produce nothing, not a zero invoice.
			return nil, nil
		}
		liters := decimal.NewFromInt(containers).Mul(cfg.LiterFactor())
		charge = ratingdomain.Charge{
			Amount:      liters.Mul(account.Plan.Price),
			Description: "Water Consumption for " + cycle.Label,
		}
	} else {
		charge = ratingdomain.Charge{
			Amount:      account.Plan.Price,
			Description: "Monthly Subscription for " + cycle.Label,
		}
	}

	if cfg.PendingChargeMode == config.PendingChargeModeFold {
		for _, pc := range pending {
			if pc.ConsumedAt != nil {
				continue
			}
			charge.Amount = charge.Amount.Add(pc.Amount)
			charge.FoldedChargeIDs = append(charge.FoldedChargeIDs, pc.ID)
		}
		if len(charge.FoldedChargeIDs) > 0 {
			s.log.Debug("rating.pending_charges_folded",
				zap.String("client_code", account.ClientCode),
				zap.Int("count", len(charge.FoldedChargeIDs)),
			)
		}
	}

	return &charge, nil
}

// ConsumedLiters converts in-window container counts to liters; the PDF
// statement generator relies on the same conversion staying consistent.
func ConsumedLiters(cycle billingcycle.Cycle, deliveries []deliverydomain.Delivery, literFactor decimal.Decimal) decimal.Decimal {
	containers := lo.SumBy(deliveries, func(d deliverydomain.Delivery) int64 {
		if !cycle.Contains(d.DeliveredAt) {
			return 0
		}
		return d.Containers
	})
	return decimal.NewFromInt(containers).Mul(literFactor)
}
