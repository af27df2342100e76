package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// Payment records a wallet charge against an order. One order has at most
// one payment row; refunds accumulate on RefundedAmount.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex:payments_order_id_key"`
	WalletID       uuid.UUID           `gorm:"column:wallet_id;type:uuid;not null"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	RefundedAmount decimal.Decimal     `gorm:"column:refunded_amount;type:numeric(12,2);not null;default:0"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
