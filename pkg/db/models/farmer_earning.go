package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// FarmerEarning is the accrual record created per order item at checkout.
// It starts PENDING, moves to CONFIRMED when the order is confirmed, and
// to PAID on payout.
type FarmerEarning struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID    uuid.UUID           `gorm:"column:farmer_id;type:uuid;not null;index:farmer_earnings_farmer_id_idx"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index:farmer_earnings_order_id_idx"`
	OrderItemID uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null;uniqueIndex:farmer_earnings_order_item_key"`
	Quantity    int                 `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status      enums.EarningStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	ConfirmedAt *time.Time          `gorm:"column:confirmed_at"`
	PaidAt      *time.Time          `gorm:"column:paid_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
