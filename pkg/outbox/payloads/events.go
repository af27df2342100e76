package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout that produced a new order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	FarmerIDs   []uuid.UUID     `json:"farmer_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every order status transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"buyer_id"`
	FarmerIDs  []uuid.UUID       `json:"farmer_ids"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// PaymentSucceededEvent is emitted when a wallet charge settles an order.
type PaymentSucceededEvent struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	BuyerID   uuid.UUID       `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
}

// OrderRefundedEvent is emitted on every refund, full or partial.
type OrderRefundedEvent struct {
	PaymentID      uuid.UUID                `json:"payment_id"`
	OrderID        uuid.UUID                `json:"order_id"`
	BuyerID        uuid.UUID                `json:"buyer_id"`
	Amount         decimal.Decimal          `json:"amount"`
	TotalRefunded  decimal.Decimal          `json:"total_refunded"`
	ResultingState enums.OrderPaymentStatus `json:"resulting_state"`
	RefundedAt     time.Time                `json:"refunded_at"`
}

// WalletDepositedEvent is emitted when funds land in a wallet.
type WalletDepositedEvent struct {
	WalletID     uuid.UUID       `json:"wallet_id"`
	UserID       uuid.UUID       `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// ContractCycleRunEvent reports one recurring contract cycle placing an order.
type ContractCycleRunEvent struct {
	ContractID       uuid.UUID `json:"contract_id"`
	OrderID          uuid.UUID `json:"order_id"`
	BuyerID          uuid.UUID `json:"buyer_id"`
	FarmerID         uuid.UUID `json:"farmer_id"`
	NextDeliveryDate time.Time `json:"next_delivery_date"`
}

// NotificationRequestedEvent tells the notification worker to fan a message out.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	OrderID *uuid.UUID             `json:"order_id,omitempty"`
}
