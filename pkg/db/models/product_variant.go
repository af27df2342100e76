package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// ProductVariant is a dry-goods catalog entry (a packaged, shelf-stable
// product a farmer lists in a fixed size). Stock columns mirror produce
// lots so the reservation path handles every kind the same way.
type ProductVariant struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID          uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index:product_variants_farmer_id_idx"`
	Name              string            `gorm:"column:name;not null"`
	Unit              enums.ProduceUnit `gorm:"column:unit;type:text;not null"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	QuantityAvailable int               `gorm:"column:quantity_available;not null;default:0"`
	Available         bool              `gorm:"column:available;not null;default:true"`
	TotalSold         int               `gorm:"column:total_sold;not null;default:0"`
	TotalRevenue      decimal.Decimal   `gorm:"column:total_revenue;type:numeric(12,2);not null;default:0"`
	Description       *string           `gorm:"column:description"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
