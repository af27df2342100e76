package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/internal/cart"
	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/internal/stock"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

var orderTestDDL = []string{
	`CREATE TABLE IF NOT EXISTS produces (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT,
  unit TEXT NOT NULL,
  price NUMERIC NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS mixed_boxes (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  price NUMERIC NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  price NUMERIC NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue NUMERIC NOT NULL DEFAULT 0,
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS pricing_tiers (
  id TEXT PRIMARY KEY,
  produce_id TEXT NOT NULL,
  buyer_id TEXT,
  min_quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  unit TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  produce_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, produce_id)
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'UNPAID',
  total_amount NUMERIC NOT NULL,
  refunded_amount NUMERIC NOT NULL DEFAULT 0,
  confirmed_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  produce_id TEXT,
  mixed_box_id TEXT,
  variant_id TEXT,
  farmer_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'SCHEDULED',
  address TEXT,
  scheduled_for DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS farmer_earnings (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_item_id TEXT NOT NULL UNIQUE,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  confirmed_at DATETIME,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS farmer_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  farm_name TEXT NOT NULL,
  region TEXT,
  total_earnings NUMERIC NOT NULL DEFAULT 0,
  total_orders INTEGER NOT NULL DEFAULT 0,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range orderTestDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type orderFixture struct {
	db      *gorm.DB
	orders  Service
	cart    cart.Service
	pricing pricing.Service
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupOrderTestDB(t)

	stockSvc, err := stock.NewService(stock.NewRepository(db))
	require.NoError(t, err)
	pricingSvc, err := pricing.NewService(pricing.NewRepository(db))
	require.NoError(t, err)
	earningsSvc, err := earnings.NewService(earnings.NewRepository(db), &testTxRunner{db: db})
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.NewRepository(db), catalog.NewRepository(db))
	require.NoError(t, err)
	events := outbox.NewService(outbox.NewRepository(db), nil)

	svc, err := NewService(
		NewRepository(db), stockSvc, pricingSvc, earningsSvc, cartSvc,
		&testTxRunner{db: db}, events, nil,
	)
	require.NoError(t, err)

	return &orderFixture{db: db, orders: svc, cart: cartSvc, pricing: pricingSvc}
}

func (f *orderFixture) seedProduce(t *testing.T, farmerID uuid.UUID, price int64, qty int) *models.Produce {
	t.Helper()
	row := &models.Produce{
		ID:                uuid.New(),
		FarmerID:          farmerID,
		Name:              "Yam",
		Unit:              enums.ProduceUnitTubers,
		Price:             decimal.NewFromInt(price),
		QuantityAvailable: qty,
		Available:         qty > 0,
	}
	require.NoError(t, f.db.Create(row).Error)
	return row
}

func (f *orderFixture) seedVariant(t *testing.T, farmerID uuid.UUID, price int64, qty int) *models.ProductVariant {
	t.Helper()
	row := &models.ProductVariant{
		ID:                uuid.New(),
		FarmerID:          farmerID,
		Name:              "Dried Beans 5kg",
		Unit:              enums.ProduceUnitSacs,
		Price:             decimal.NewFromInt(price),
		QuantityAvailable: qty,
		Available:         qty > 0,
	}
	require.NoError(t, f.db.Create(row).Error)
	return row
}

func (f *orderFixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func TestCheckoutAssemblesOrderFromCart(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	farmerID := uuid.New()
	yam := f.seedProduce(t, farmerID, 5, 10)
	maize := f.seedProduce(t, farmerID, 3, 8)

	_, err := f.cart.AddItem(context.Background(), buyerID, yam.ID, 4)
	require.NoError(t, err)
	_, err = f.cart.AddItem(context.Background(), buyerID, maize.ID, 2)
	require.NoError(t, err)

	order, err := f.orders.Checkout(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.OrderPaymentStatusUnpaid, order.PaymentStatus)
	require.Len(t, order.Items, 2)
	// 4*5 + 2*3
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(26)))
	require.NotNil(t, order.Delivery)
	assert.Equal(t, enums.DeliveryStatusScheduled, order.Delivery.Status)

	var yamAfter models.Produce
	require.NoError(t, f.db.First(&yamAfter, "id = ?", yam.ID).Error)
	assert.Equal(t, 6, yamAfter.QuantityAvailable)

	var earningsCount int64
	require.NoError(t, f.db.Model(&models.FarmerEarning{}).
		Where("order_id = ? AND status = ?", order.ID, enums.EarningStatusPending).
		Count(&earningsCount).Error)
	assert.Equal(t, int64(2), earningsCount)

	reloaded, err := f.cart.Get(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Items)

	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderCreated))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.orders.Checkout(context.Background(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckoutInsufficientStockLeavesEverythingIntact(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 5, 3)

	_, err := f.cart.AddItem(context.Background(), buyerID, produce.ID, 3)
	require.NoError(t, err)
	// shrink the stock behind the cart's back
	require.NoError(t, f.db.Model(&models.Produce{}).
		Where("id = ?", produce.ID).Update("quantity_available", 2).Error)

	_, err = f.orders.Checkout(context.Background(), buyerID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	var after models.Produce
	require.NoError(t, f.db.First(&after, "id = ?", produce.ID).Error)
	assert.Equal(t, 2, after.QuantityAvailable)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	reloaded, err := f.cart.Get(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 1)

	assert.Zero(t, f.countEvents(t, enums.EventOrderCreated))
}

func TestAssembleFreezesTierPrice(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 10, 50)

	_, err := f.pricing.CreateTier(context.Background(), pricing.CreateTierInput{
		ProduceID:   produce.ID,
		BuyerID:     &buyerID,
		MinQuantity: 5,
		UnitPrice:   decimal.NewFromInt(8),
		Unit:        produce.Unit,
	})
	require.NoError(t, err)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 6},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(8)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(48)))

	// later list price changes never touch the frozen item price
	require.NoError(t, f.db.Model(&models.Produce{}).
		Where("id = ?", produce.ID).Update("price", decimal.NewFromInt(99)).Error)
	loaded, err := f.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Items[0].UnitPrice.Equal(decimal.NewFromInt(8)))
}

func TestAssembleAgreedPriceBypassesTiers(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 10, 50)
	agreed := decimal.NewFromInt(7)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 3, AgreedUnitPrice: &agreed},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].UnitPrice.Equal(agreed))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(21)))
}

func TestAssembleSnapshotsProductNameAndUnit(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 5, 10)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 4},
	})
	require.NoError(t, err)

	// renaming the listing must not rewrite what the buyer bought
	require.NoError(t, f.db.Model(&models.Produce{}).
		Where("id = ?", produce.ID).
		Updates(map[string]any{"name": "Water Yam", "unit": enums.ProduceUnitSacs}).Error)

	loaded, err := f.orders.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Yam", loaded.Items[0].ProductName)
	assert.Equal(t, enums.ProduceUnitTubers, loaded.Items[0].Unit)

	var earning models.FarmerEarning
	require.NoError(t, f.db.First(&earning, "order_item_id = ?", loaded.Items[0].ID).Error)
	assert.Equal(t, 4, earning.Quantity)
	assert.True(t, earning.UnitPrice.Equal(decimal.NewFromInt(5)))
	assert.True(t, earning.Amount.Equal(decimal.NewFromInt(20)))
}

func TestAssembleMixedCatalogKinds(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	farmerID := uuid.New()
	produce := f.seedProduce(t, farmerID, 5, 10)
	variant := f.seedVariant(t, farmerID, 12, 6)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 2},
		{Kind: enums.CatalogEntryDryGoods, EntryID: variant.ID, Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	// 2*5 + 3*12
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(46)))

	byName := map[string]models.OrderItem{}
	for _, item := range order.Items {
		byName[item.ProductName] = item
	}
	yamItem := byName["Yam"]
	require.NotNil(t, yamItem.ProduceID)
	assert.Equal(t, produce.ID, *yamItem.ProduceID)
	assert.Nil(t, yamItem.VariantID)

	beansItem := byName["Dried Beans 5kg"]
	require.NotNil(t, beansItem.VariantID)
	assert.Equal(t, variant.ID, *beansItem.VariantID)
	assert.Nil(t, beansItem.ProduceID)
	assert.True(t, beansItem.UnitPrice.Equal(decimal.NewFromInt(12)))

	var variantAfter models.ProductVariant
	require.NoError(t, f.db.First(&variantAfter, "id = ?", variant.ID).Error)
	assert.Equal(t, 3, variantAfter.QuantityAvailable)
}

func TestOrderItemRequiresSingleCatalogRef(t *testing.T) {
	f := newOrderFixture(t)
	orderID := uuid.New()
	produceID := uuid.New()
	boxID := uuid.New()

	bare := &models.OrderItem{
		OrderID:     orderID,
		FarmerID:    uuid.New(),
		ProductName: "Yam",
		Unit:        enums.ProduceUnitTubers,
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(5),
		Subtotal:    decimal.NewFromInt(5),
	}
	err := f.db.Create(bare).Error
	require.ErrorIs(t, err, models.ErrAmbiguousCatalogRef)

	double := &models.OrderItem{
		OrderID:     orderID,
		ProduceID:   &produceID,
		MixedBoxID:  &boxID,
		FarmerID:    uuid.New(),
		ProductName: "Yam",
		Unit:        enums.ProduceUnitTubers,
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(5),
		Subtotal:    decimal.NewFromInt(5),
	}
	err = f.db.Create(double).Error
	require.ErrorIs(t, err, models.ErrAmbiguousCatalogRef)
}

func TestTransitionConfirmSettlesCountersExactlyOnce(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	farmerID := uuid.New()
	profile := &models.FarmerProfile{ID: uuid.New(), UserID: farmerID, FarmName: "Hillside"}
	require.NoError(t, f.db.Create(profile).Error)
	produce := f.seedProduce(t, farmerID, 5, 10)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 4},
	})
	require.NoError(t, err)

	actor := outbox.ActorRef{UserID: farmerID, Role: enums.UserRoleFarmer.String()}
	confirmed, err := f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	// same-state transition is a no-op and emits nothing new
	again, err := f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, again.Status)
	assert.Equal(t, int64(1), f.countEvents(t, enums.EventOrderStatusChanged))

	var profileAfter models.FarmerProfile
	require.NoError(t, f.db.First(&profileAfter, "user_id = ?", farmerID).Error)
	assert.True(t, profileAfter.TotalEarnings.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 1, profileAfter.TotalOrders)

	var produceAfter models.Produce
	require.NoError(t, f.db.First(&produceAfter, "id = ?", produce.ID).Error)
	assert.Equal(t, 4, produceAfter.TotalSold)
	assert.True(t, produceAfter.TotalRevenue.Equal(decimal.NewFromInt(20)))
}

func TestTransitionRejectsBackwardAndSkips(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 5, 10)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 1},
	})
	require.NoError(t, err)
	actor := outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()}

	_, err = f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusDelivered)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)

	_, err = f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusPending)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestTransitionDeliveredClosesDelivery(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	produce := f.seedProduce(t, uuid.New(), 5, 10)

	order, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
		{EntryID: produce.ID, Quantity: 1},
	})
	require.NoError(t, err)
	actor := outbox.ActorRef{UserID: buyerID, Role: enums.UserRoleBuyer.String()}

	_, err = f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	delivered, err := f.orders.TransitionStatus(context.Background(), actor, order.ID, enums.OrderStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)

	var delivery models.Delivery
	require.NoError(t, f.db.First(&delivery, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.DeliveryStatusDelivered, delivery.Status)
	require.NotNil(t, delivery.DeliveredAt)
}

func TestListByBuyerAndFarmer(t *testing.T) {
	f := newOrderFixture(t)
	buyerID := uuid.New()
	farmerID := uuid.New()
	produce := f.seedProduce(t, farmerID, 5, 50)

	for i := 0; i < 3; i++ {
		_, err := f.orders.Assemble(context.Background(), buyerID, []AssembleLine{
			{EntryID: produce.ID, Quantity: 1},
		})
		require.NoError(t, err)
	}

	byBuyer, err := f.orders.ListByBuyer(context.Background(), buyerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byBuyer.Items, 3)

	byFarmer, err := f.orders.ListByFarmer(context.Background(), farmerID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byFarmer.Items, 3)

	other, err := f.orders.ListByFarmer(context.Background(), uuid.New(), pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}
