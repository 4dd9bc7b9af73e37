// Package domain contains persistence models for water deliveries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DeliveryStatus represents fulfilment states for a delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

// Delivery records containers dropped off at an account on a given date.
// Billing attributes every in-window record to the cycle regardless of
// status; see rating for the policy.
type Delivery struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	AccountID   snowflake.ID      `gorm:"not null;index:ix_deliveries_account_date,priority:1"`
	DeliveredAt time.Time         `gorm:"not null;index:ix_deliveries_account_date,priority:2"`
	Containers  int64             `gorm:"not null"`
	Status      DeliveryStatus    `gorm:"type:text;not null;default:'PENDING'"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Delivery) TableName() string { return "deliveries" }
