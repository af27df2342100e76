package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// PricingTier is a quantity-break price on a produce lot. A nil BuyerID
// marks a global tier; buyer-specific tiers win over global ones.
type PricingTier struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProduceID   uuid.UUID         `gorm:"column:produce_id;type:uuid;not null;index:pricing_tiers_produce_id_idx"`
	BuyerID     *uuid.UUID        `gorm:"column:buyer_id;type:uuid"`
	MinQuantity int               `gorm:"column:min_quantity;not null"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Unit        enums.ProduceUnit `gorm:"column:unit;type:text;not null"`
	Active      bool              `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
