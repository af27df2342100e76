package earnings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r *testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupEarningsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	earnings := `
CREATE TABLE IF NOT EXISTS farmer_earnings (
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
);`
	profiles := `
CREATE TABLE IF NOT EXISTS farmer_profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  farm_name TEXT NOT NULL,
  region TEXT,
  total_earnings NUMERIC NOT NULL DEFAULT 0,
  total_orders INTEGER NOT NULL DEFAULT 0,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(earnings).Error)
	require.NoError(t, db.Exec(profiles).Error)
	return db
}

func newEarningsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), &testTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedFarmerProfile(t *testing.T, db *gorm.DB, userID uuid.UUID) *models.FarmerProfile {
	t.Helper()
	profile := &models.FarmerProfile{
		ID:       uuid.New(),
		UserID:   userID,
		FarmName: "Green Valley",
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func orderWithItems(farmerID uuid.UUID, subtotals ...int64) *models.Order {
	order := &models.Order{ID: uuid.New(), BuyerID: uuid.New()}
	for _, subtotal := range subtotals {
		produceID := uuid.New()
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProduceID:   &produceID,
			FarmerID:    farmerID,
			ProductName: "Yam",
			Unit:        enums.ProduceUnitTubers,
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(subtotal),
			Subtotal:    decimal.NewFromInt(subtotal),
		})
	}
	return order
}

func TestAccrueCreatesPendingEarningPerItem(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerID := uuid.New()
	order := orderWithItems(farmerID, 40, 60)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.AccrueForOrder(context.Background(), tx, order)
	})
	require.NoError(t, err)

	var rows []models.FarmerEarning
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, enums.EarningStatusPending, row.Status)
		assert.Equal(t, farmerID, row.FarmerID)
		assert.Equal(t, 1, row.Quantity)
		assert.True(t, row.UnitPrice.Equal(row.Amount), "unit price snapshot should match the single-quantity amount")
	}
}

func TestConfirmBumpsFarmerCountersExactlyOnce(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerID := uuid.New()
	seedFarmerProfile(t, db, farmerID)
	order := orderWithItems(farmerID, 40, 60)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.AccrueForOrder(context.Background(), tx, order)
	}))

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return svc.ConfirmForOrder(context.Background(), tx, order.ID)
		}))
	}

	var profile models.FarmerProfile
	require.NoError(t, db.First(&profile, "user_id = ?", farmerID).Error)
	assert.True(t, profile.TotalEarnings.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, profile.TotalOrders)

	var confirmed int64
	require.NoError(t, db.Model(&models.FarmerEarning{}).
		Where("order_id = ? AND status = ?", order.ID, enums.EarningStatusConfirmed).
		Count(&confirmed).Error)
	assert.Equal(t, int64(2), confirmed)
}

func TestConfirmSplitsCountersAcrossFarmers(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerA := uuid.New()
	farmerB := uuid.New()
	seedFarmerProfile(t, db, farmerA)
	seedFarmerProfile(t, db, farmerB)

	order := orderWithItems(farmerA, 30)
	produceID := uuid.New()
	order.Items = append(order.Items, models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProduceID:   &produceID,
		FarmerID:    farmerB,
		ProductName: "Yam",
		Unit:        enums.ProduceUnitTubers,
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(70),
		Subtotal:    decimal.NewFromInt(70),
	})

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.AccrueForOrder(context.Background(), tx, order)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ConfirmForOrder(context.Background(), tx, order.ID)
	}))

	var profileA, profileB models.FarmerProfile
	require.NoError(t, db.First(&profileA, "user_id = ?", farmerA).Error)
	require.NoError(t, db.First(&profileB, "user_id = ?", farmerB).Error)
	assert.True(t, profileA.TotalEarnings.Equal(decimal.NewFromInt(30)))
	assert.True(t, profileB.TotalEarnings.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, 1, profileA.TotalOrders)
	assert.Equal(t, 1, profileB.TotalOrders)
}

func TestPayoutMarksConfirmedPaid(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerID := uuid.New()
	seedFarmerProfile(t, db, farmerID)
	order := orderWithItems(farmerID, 40, 60)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.AccrueForOrder(context.Background(), tx, order)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ConfirmForOrder(context.Background(), tx, order.ID)
	}))

	result, err := svc.Payout(context.Background(), farmerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Count)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(100)))

	var pending int64
	require.NoError(t, db.Model(&models.FarmerEarning{}).
		Where("farmer_id = ? AND status != ?", farmerID, enums.EarningStatusPaid).
		Count(&pending).Error)
	assert.Zero(t, pending)

	// nothing confirmed remains, a second run disburses nothing
	again, err := svc.Payout(context.Background(), farmerID)
	require.NoError(t, err)
	assert.Zero(t, again.Count)
	assert.True(t, again.Total.Equal(decimal.Zero))
}

func TestPayoutSkipsPendingEarnings(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerID := uuid.New()
	order := orderWithItems(farmerID, 55)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.AccrueForOrder(context.Background(), tx, order)
	}))

	result, err := svc.Payout(context.Background(), farmerID)
	require.NoError(t, err)
	assert.Zero(t, result.Count)

	var row models.FarmerEarning
	require.NoError(t, db.First(&row, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.EarningStatusPending, row.Status)
}

func TestListByFarmerFiltersStatus(t *testing.T) {
	db := setupEarningsTestDB(t)
	svc := newEarningsService(t, db)
	farmerID := uuid.New()
	seedFarmerProfile(t, db, farmerID)

	confirmedOrder := orderWithItems(farmerID, 20)
	pendingOrder := orderWithItems(farmerID, 35)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := svc.AccrueForOrder(context.Background(), tx, confirmedOrder); err != nil {
			return err
		}
		return svc.AccrueForOrder(context.Background(), tx, pendingOrder)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.ConfirmForOrder(context.Background(), tx, confirmedOrder.ID)
	}))

	confirmed := enums.EarningStatusConfirmed
	page, err := svc.ListByFarmer(context.Background(), farmerID, &confirmed, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, confirmedOrder.ID, page.Items[0].OrderID)

	all, err := svc.ListByFarmer(context.Background(), farmerID, nil, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
