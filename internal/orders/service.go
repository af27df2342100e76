package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/internal/cart"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/internal/stock"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/payloads"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AssembleLine is one requested order line. A zero Kind means a produce
// lot. AgreedUnitPrice bypasses tier resolution; recurring contracts use it
// to freeze their negotiated price.
type AssembleLine struct {
	Kind            enums.CatalogEntryKind
	EntryID         uuid.UUID
	Quantity        int
	AgreedUnitPrice *decimal.Decimal
}

func (l AssembleLine) kind() enums.CatalogEntryKind {
	if l.Kind == "" {
		return enums.CatalogEntryProduce
	}
	return l.Kind
}

// OrdersResult is one page of orders.
type OrdersResult struct {
	Items      []models.Order `json:"items"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// Service assembles orders and drives their status lifecycle.
type Service interface {
	Checkout(ctx context.Context, buyerID uuid.UUID) (*models.Order, error)
	Assemble(ctx context.Context, buyerID uuid.UUID, lines []AssembleLine) (*models.Order, error)
	AssembleTx(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, lines []AssembleLine) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrdersResult, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, params pagination.Params) (*OrdersResult, error)
	TransitionStatus(ctx context.Context, actor outbox.ActorRef, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error)
}

type service struct {
	repo     Repository
	stock    stock.Service
	pricing  pricing.Service
	earnings earnings.Service
	cart     cart.Service
	tx       txRunner
	events   outboxEmitter
	logg     *logger.Logger
}

// NewService wires the order service with its collaborators.
func NewService(
	repo Repository,
	stockSvc stock.Service,
	pricingSvc pricing.Service,
	earningsSvc earnings.Service,
	cartSvc cart.Service,
	tx txRunner,
	events outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if earningsSvc == nil {
		return nil, fmt.Errorf("earnings service required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:     repo,
		stock:    stockSvc,
		pricing:  pricingSvc,
		earnings: earningsSvc,
		cart:     cartSvc,
		tx:       tx,
		events:   events,
		logg:     logg,
	}, nil
}

// Checkout turns the buyer's cart into an order and clears the cart, all in
// one transaction with the stock reservation.
func (s *service) Checkout(ctx context.Context, buyerID uuid.UUID) (*models.Order, error) {
	loaded, err := s.cart.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if len(loaded.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]AssembleLine, 0, len(loaded.Items))
	for _, item := range loaded.Items {
		lines = append(lines, AssembleLine{EntryID: item.ProduceID, Quantity: item.Quantity})
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assembled, err := s.AssembleTx(ctx, tx, buyerID, lines)
		if err != nil {
			return err
		}
		if err := s.cart.Clear(ctx, tx, loaded.ID); err != nil {
			return err
		}
		order = assembled
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"buyer_id": buyerID.String(),
			"total":    order.TotalAmount.String(),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

// Assemble places an order for explicit lines in its own transaction.
func (s *service) Assemble(ctx context.Context, buyerID uuid.UUID, lines []AssembleLine) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assembled, err := s.AssembleTx(ctx, tx, buyerID, lines)
		if err != nil {
			return err
		}
		order = assembled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// AssembleTx builds an order inside the caller's transaction: reservation,
// frozen-price line items, pending earnings, delivery placeholder, and the
// order created event all commit or roll back together.
func (s *service) AssembleTx(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, lines []AssembleLine) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required to assemble an order")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one line")
	}

	reserveLines := make([]stock.Line, 0, len(lines))
	for _, line := range lines {
		reserveLines = append(reserveLines, stock.Line{Kind: line.kind(), EntryID: line.EntryID, Quantity: line.Quantity})
	}
	entryByID, err := s.stock.Reserve(ctx, tx, reserveLines)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.OrderPaymentStatusUnpaid,
		TotalAmount:   decimal.Zero,
	}

	for _, line := range lines {
		entry := entryByID[line.EntryID]

		// Volume tiers are negotiated per produce lot; the other catalog
		// kinds sell at list price unless the line carries an agreed one.
		unitPrice := entry.Price
		if line.AgreedUnitPrice != nil {
			unitPrice = *line.AgreedUnitPrice
		} else if line.kind() == enums.CatalogEntryProduce {
			resolved, err := s.pricing.Resolve(ctx, tx, pricing.ResolveInput{
				ProduceID: line.EntryID,
				BuyerID:   buyerID,
				Quantity:  line.Quantity,
				Unit:      entry.Unit,
				ListPrice: entry.Price,
			})
			if err != nil {
				return nil, err
			}
			unitPrice = resolved.UnitPrice
		}

		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		item := models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			FarmerID:    entry.FarmerID,
			ProductName: entry.Name,
			Unit:        entry.Unit,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			Subtotal:    subtotal,
		}
		entryID := line.EntryID
		switch line.kind() {
		case enums.CatalogEntryMixedBox:
			item.MixedBoxID = &entryID
		case enums.CatalogEntryDryGoods:
			item.VariantID = &entryID
		default:
			item.ProduceID = &entryID
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(subtotal)
	}

	order.Delivery = &models.Delivery{
		OrderID: order.ID,
		Status:  enums.DeliveryStatusScheduled,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if err := s.earnings.AccrueForOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	err = s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()},
		Version:       1,
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			BuyerID:     buyerID,
			FarmerIDs:   farmerIDs(order.Items),
			TotalAmount: order.TotalAmount,
			ItemCount:   len(order.Items),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrdersResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByBuyer(ctx, listOrdersParams{UserID: buyerID, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pageResult(rows, next), nil
}

func (s *service) ListByFarmer(ctx context.Context, farmerID uuid.UUID, params pagination.Params) (*OrdersResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByFarmer(ctx, listOrdersParams{UserID: farmerID, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pageResult(rows, next), nil
}

// TransitionStatus moves an order strictly forward through its lifecycle.
// Repeating the current status is a no-op and emits nothing. Confirmation
// settles earnings and sale counters exactly once, in the same transaction
// as the status flip.
func (s *service) TransitionStatus(ctx context.Context, actor outbox.ActorRef, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", target))
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if loaded == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if loaded.Status == target {
			order = loaded
			return nil
		}
		if !loaded.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status cannot move backwards or skip steps").
				WithDetails(map[string]any{"from": loaded.Status, "to": target})
		}

		from := loaded.Status
		now := time.Now().UTC()

		switch target {
		case enums.OrderStatusConfirmed:
			loaded.ConfirmedAt = &now
			if err := s.earnings.ConfirmForOrder(ctx, tx, loaded.ID); err != nil {
				return err
			}
			for _, item := range loaded.Items {
				if err := s.stock.RecordSale(ctx, tx, item); err != nil {
					return err
				}
			}
		case enums.OrderStatusDelivered:
			loaded.DeliveredAt = &now
			if loaded.Delivery != nil {
				loaded.Delivery.Status = enums.DeliveryStatusDelivered
				loaded.Delivery.DeliveredAt = &now
				if err := repo.SaveDelivery(ctx, loaded.Delivery); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery")
				}
			}
		}

		loaded.Status = target
		if err := repo.Save(ctx, loaded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		order = loaded
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   loaded.ID,
			Actor:         &actor,
			Version:       1,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    loaded.ID,
				BuyerID:    loaded.BuyerID,
				FarmerIDs:  farmerIDs(loaded.Items),
				FromStatus: from,
				ToStatus:   target,
				ChangedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func farmerIDs(items []models.OrderItem) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.FarmerID]; ok {
			continue
		}
		seen[item.FarmerID] = struct{}{}
		ids = append(ids, item.FarmerID)
	}
	return ids
}

func pageResult(rows []models.Order, next *pagination.Cursor) *OrdersResult {
	result := &OrdersResult{Items: rows}
	if next != nil {
		encoded := next.Encode()
		result.NextCursor = &encoded
	}
	return result
}
