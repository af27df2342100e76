package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// Delivery is the fulfillment placeholder created alongside each order.
type Delivery struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:deliveries_order_id_key"`
	Status       enums.DeliveryStatus `gorm:"column:status;type:text;not null;default:'SCHEDULED'"`
	Address      *string              `gorm:"column:address"`
	ScheduledFor *time.Time           `gorm:"column:scheduled_for"`
	DeliveredAt  *time.Time           `gorm:"column:delivered_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
