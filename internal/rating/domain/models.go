// Package domain defines the charge calculator contract.
package domain

import (
	"context"
	"errors"

	accountdomain "github.com/aquadesk/aquadesk/internal/account/domain"
	"github.com/aquadesk/aquadesk/internal/billingcycle"
	deliverydomain "github.com/aquadesk/aquadesk/internal/delivery/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Charge is the fully computed billing outcome for one account and one
// cycle, produced in memory before anything is written.
type Charge struct {
	Amount      decimal.Decimal
	Description string

	// FoldedChargeIDs lists pending charges included in Amount, so the
	// caller can mark them consumed in the same unit of work. Empty in
	// separate mode.
	FoldedChargeIDs []snowflake.ID
}

// Service computes an account's charge for a cycle. A nil Charge with a
// nil error means the account legitimately produces no invoice this
// cycle (admin, no plan, or zero consumption).
type Service interface {
	ComputeCharge(
		ctx context.Context,
		account accountdomain.Account,
		cycle billingcycle.Cycle,
		deliveries []deliverydomain.Delivery,
		pending []accountdomain.PendingCharge,
	) (*Charge, error)
}

var ErrInvalidPlanPrice = errors.New("plan price cannot be negative")
