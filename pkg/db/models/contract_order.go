package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// ContractOrder is a recurring bulk agreement between a buyer and a
// farmer. Each cycle run places a regular order at the agreed prices and
// advances NextDeliveryDate by the frequency.
type ContractOrder struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID          uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index:contract_orders_buyer_id_idx"`
	FarmerID         uuid.UUID               `gorm:"column:farmer_id;type:uuid;not null;index:contract_orders_farmer_id_idx"`
	Frequency        enums.ContractFrequency `gorm:"column:frequency;type:text;not null"`
	NextDeliveryDate time.Time               `gorm:"column:next_delivery_date;not null"`
	Active           bool                    `gorm:"column:active;not null;default:true"`
	Items            []ContractItem          `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// ContractItem is one agreed line of a contract order. AgreedUnitPrice
// overrides every tier when the cycle order is priced.
type ContractItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID      uuid.UUID       `gorm:"column:contract_id;type:uuid;not null;index:contract_items_contract_id_idx"`
	ProduceID       uuid.UUID       `gorm:"column:produce_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	AgreedUnitPrice decimal.Decimal `gorm:"column:agreed_unit_price;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
