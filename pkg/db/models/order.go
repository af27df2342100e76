package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// Order is a buyer purchase assembled at checkout. TotalAmount is the sum
// of the item subtotals at the frozen checkout prices.
type Order struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null;index:orders_buyer_id_idx"`
	Status         enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentStatus  enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'UNPAID'"`
	TotalAmount    decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	RefundedAmount decimal.Decimal          `gorm:"column:refunded_amount;type:numeric(12,2);not null;default:0"`
	Items          []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery       *Delivery                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt    *time.Time               `gorm:"column:confirmed_at"`
	DeliveredAt    *time.Time               `gorm:"column:delivered_at"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a single line of an order, referencing exactly one catalog
// entry: a produce lot, a mixed box, or a dry-goods variant. ProductName,
// Unit, and UnitPrice are frozen at checkout time; later catalog changes
// never touch them.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	ProduceID   *uuid.UUID        `gorm:"column:produce_id;type:uuid"`
	MixedBoxID  *uuid.UUID        `gorm:"column:mixed_box_id;type:uuid"`
	VariantID   *uuid.UUID        `gorm:"column:variant_id;type:uuid"`
	FarmerID    uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index:order_items_farmer_id_idx"`
	ProductName string            `gorm:"column:product_name;not null"`
	Unit        enums.ProduceUnit `gorm:"column:unit;type:text;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal    decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// CatalogRef returns the kind and id of the single catalog entry this line
// references.
func (i OrderItem) CatalogRef() (enums.CatalogEntryKind, uuid.UUID) {
	switch {
	case i.ProduceID != nil:
		return enums.CatalogEntryProduce, *i.ProduceID
	case i.MixedBoxID != nil:
		return enums.CatalogEntryMixedBox, *i.MixedBoxID
	case i.VariantID != nil:
		return enums.CatalogEntryDryGoods, *i.VariantID
	}
	return "", uuid.Nil
}
