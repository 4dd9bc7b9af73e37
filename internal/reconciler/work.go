package reconciler

import (
	"context"
	"time"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/aquadesk/aquadesk/internal/billingcycle"
	deliverydomain "github.com/aquadesk/aquadesk/internal/delivery/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// fetchAccountsBatch pages accounts by keyset so a run never loads the
// whole book at once.
func (r *Reconciler) fetchAccountsBatch(ctx context.Context, afterID snowflake.ID, limit int) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *Reconciler) fetchDeliveries(ctx context.Context, accountID snowflake.ID, cycle billingcycle.Cycle) ([]deliverydomain.Delivery, error) {
	var deliveries []deliverydomain.Delivery
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND delivered_at >= ? AND delivered_at < ?", accountID, cycle.Start, cycle.End).
		Order("delivered_at").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *Reconciler) fetchPendingCharges(ctx context.Context, accountID snowflake.ID) ([]accountdomain.PendingCharge, error) {
	var charges []accountdomain.PendingCharge
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND consumed_at IS NULL", accountID).
		Order("added_at").
		Find(&charges).Error
	if err != nil {
		return nil, err
	}
	return charges, nil
}

func (r *Reconciler) markChargesConsumed(ctx context.Context, chargeIDs []snowflake.ID, invoiceID snowflake.ID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&accountdomain.PendingCharge{}).
		Where("id IN ?", chargeIDs).
		Updates(map[string]any{
			"consumed_at": now,
			"invoice_id":  invoiceID,
		}).Error
}

// activatePlan swaps the pending plan in with a guarded update, so a
// rerun (or a concurrent runner) activates at most once.
func (r *Reconciler) activatePlan(ctx context.Context, acct accountdomain.Account, now time.Time) (bool, error) {
	next := acct
	next.ActivatePendingPlan()

	result := r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ? AND pending_plan_name <> ''", acct.ID).
		Updates(map[string]any{
			"plan_name":                      next.Plan.Name,
			"plan_consumption_based":         next.Plan.ConsumptionBased,
			"plan_price":                     next.Plan.Price,
			"plan_auto_refill":               next.Plan.AutoRefill,
			"pending_plan_name":              "",
			"pending_plan_consumption_based": false,
			"pending_plan_price":             decimal.Zero,
			"pending_plan_auto_refill":       false,
			"plan_change_effective_date":     nil,
			"updated_at":                     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
