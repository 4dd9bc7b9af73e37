// Package domain contains the parent credit ledger contract. The engine
// only records branch consumption as debit input; top-ups and the actual
// balance movement belong to a separate transactional flow.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Direction of a credit transaction against the parent balance.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// CreditTransaction is one movement against a parent account's prepaid
// balance. Branch consumption debits are keyed by (branch, cycle) so the
// monthly run is idempotent.
type CreditTransaction struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	ParentAccountID snowflake.ID    `gorm:"not null;index"`
	BranchAccountID snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_credit_txn_branch_cycle,priority:1"`
	CycleKey        string          `gorm:"type:text;not null;uniqueIndex:ux_credit_txn_branch_cycle,priority:2"`
	Liters          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	RatePerLiter    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Direction       Direction       `gorm:"type:text;not null"`
	OccurredAt      time.Time       `gorm:"not null"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// BranchConsumption summarizes one branch's delivered volume for a cycle.
type BranchConsumption struct {
	ParentAccountID snowflake.ID
	BranchAccountID snowflake.ID
	CycleKey        string
	Liters          decimal.Decimal
	OccurredAt      time.Time
}

// Service records branch consumption debits for the out-of-scope
// top-up/settlement flow to apply against the parent balance.
type Service interface {
	// RecordBranchConsumption upserts the debit row for (branch, cycle).
	// The bool reports whether a new row was written.
	RecordBranchConsumption(ctx context.Context, consumption BranchConsumption) (*CreditTransaction, bool, error)
}

var (
	ErrMissingParentAccount = errors.New("parent_account_required")
	ErrMissingBranchAccount = errors.New("branch_account_required")
	ErrMissingCycleKey      = errors.New("cycle_key_required")
)
