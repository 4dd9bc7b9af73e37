// Package domain contains persistence models for invoicing.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. The reconciliation
// engine only ever creates UPCOMING invoices; every later transition
// belongs to the admin review flow.
type InvoiceStatus string

const (
	InvoiceStatusUpcoming      InvoiceStatus = "UPCOMING"
	InvoiceStatusPendingReview InvoiceStatus = "PENDING_REVIEW"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusRejected      InvoiceStatus = "REJECTED"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
)

// Invoice represents one billing cycle's charge for one account.
// Number is the deterministic idempotency key: at most one invoice
// exists per account per cycle no matter how often the job reruns.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	AccountID   snowflake.ID      `gorm:"not null;index"`
	Number      string            `gorm:"type:text;not null;uniqueIndex:ux_invoices_number"`
	Status      InvoiceStatus     `gorm:"type:text;not null;default:'UPCOMING'"`
	Amount      decimal.Decimal   `gorm:"type:decimal(20,4);not null"`
	Description string            `gorm:"type:text"`
	IssuedAt    time.Time         `gorm:"not null"`
	PeriodStart time.Time         `gorm:"not null"`
	PeriodEnd   time.Time         `gorm:"not null"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// NumberFor derives the deterministic invoice number for an account and
// cycle key (YYYYMM). The client code is the stable human identifier, so
// the number stays unique and readable: "INV-AQ0012-202407".
func NumberFor(clientCode, cycleKey string) string {
	return fmt.Sprintf("INV-%s-%s", clientCode, cycleKey)
}
