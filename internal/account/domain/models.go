// Package domain contains persistence models for billable accounts.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AccountType classifies how an account is billed. Branch deliveries debit
// the parent's prepaid credits instead of producing a direct invoice.
type AccountType string

const (
	AccountTypeSingle AccountType = "SINGLE"
	AccountTypeParent AccountType = "PARENT"
	AccountTypeBranch AccountType = "BRANCH"
)

// AccountRole separates billable clients from operator accounts.
type AccountRole string

const (
	AccountRoleClient AccountRole = "CLIENT"
	AccountRoleAdmin  AccountRole = "ADMIN"
)

var (
	ErrDanglingPlanChange = errors.New("pending plan and effective date must be set together")
	ErrMissingParent      = errors.New("branch account has no parent")
)

// Plan describes a subscription plan. Price is per-liter for
// consumption-based plans and a flat monthly fee otherwise.
type Plan struct {
	Name             string          `gorm:"type:text"`
	ConsumptionBased bool            `gorm:"not null;default:false"`
	Price            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AutoRefill       bool            `gorm:"not null;default:false"`
}

// Set reports whether the plan descriptor carries a plan at all.
func (p Plan) Set() bool { return p.Name != "" }

// Account represents a billable customer entity.
type Account struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	ClientCode   string       `gorm:"type:text;not null;uniqueIndex"`
	BusinessName string       `gorm:"type:text;not null"`
	Role         AccountRole  `gorm:"type:text;not null;default:'CLIENT'"`
	Type         AccountType  `gorm:"type:text;not null;default:'SINGLE'"`
	ParentID     *snowflake.ID `gorm:"index"`

	Plan                    Plan       `gorm:"embedded;embeddedPrefix:plan_"`
	PendingPlan             Plan       `gorm:"embedded;embeddedPrefix:pending_plan_"`
	PlanChangeEffectiveDate *time.Time `gorm:""`

	TopUpBalanceCredits decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

func (a *Account) HasPlan() bool { return a.Plan.Set() }

// TransitionScheduled reports whether a plan change is fully scheduled.
func (a *Account) TransitionScheduled() bool {
	return a.PendingPlan.Set() && a.PlanChangeEffectiveDate != nil
}

// TransitionDue fires on or after the effective date, so a missed run
// never skips a scheduled transition permanently.
func (a *Account) TransitionDue(now time.Time) bool {
	return a.TransitionScheduled() && !a.PlanChangeEffectiveDate.After(now)
}

// Validate checks the scheduled-transition invariant: a pending plan
// without an effective date (or the reverse) is corrupt data.
func (a *Account) Validate() error {
	if a.PendingPlan.Set() != (a.PlanChangeEffectiveDate != nil) {
		return ErrDanglingPlanChange
	}
	if a.Type == AccountTypeBranch && a.ParentID == nil {
		return ErrMissingParent
	}
	return nil
}

// ActivatePendingPlan swaps the pending plan in and clears the schedule.
// Consumption plans start with auto-refill enabled; fixed-plan-only
// fields are meaningless for them.
func (a *Account) ActivatePendingPlan() {
	plan := a.PendingPlan
	if plan.ConsumptionBased {
		plan.AutoRefill = true
	}
	a.Plan = plan
	a.PendingPlan = Plan{}
	a.PlanChangeEffectiveDate = nil
}

// PendingCharge is an ad hoc manually entered fee awaiting inclusion in a
// future invoice. ConsumedAt is set once the charge is folded into one.
type PendingCharge struct {
	ID          snowflake.ID    `gorm:"primaryKey"`
	AccountID   snowflake.ID    `gorm:"not null;index"`
	Description string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	AddedAt     time.Time       `gorm:"not null"`
	ConsumedAt  *time.Time      `gorm:""`
	InvoiceID   *snowflake.ID   `gorm:"index"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PendingCharge) TableName() string { return "pending_charges" }
