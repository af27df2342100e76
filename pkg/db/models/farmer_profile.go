package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FarmerProfile carries the running sales counters for a farmer.
// TotalEarnings and TotalOrders are only bumped when an order the farmer
// participates in is confirmed.
type FarmerProfile struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:farmer_profiles_user_id_key"`
	FarmName      string          `gorm:"column:farm_name;not null"`
	Region        *string         `gorm:"column:region"`
	TotalEarnings decimal.Decimal `gorm:"column:total_earnings;type:numeric(12,2);not null;default:0"`
	TotalOrders   int             `gorm:"column:total_orders;not null;default:0"`
	Verified      bool            `gorm:"column:verified;not null;default:false"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
