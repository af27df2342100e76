package stock

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
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
)

var stockTestDDL = []string{
	`CREATE TABLE IF NOT EXISTS produces (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT,
  unit TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue TEXT NOT NULL DEFAULT '0',
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS mixed_boxes (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue TEXT NOT NULL DEFAULT '0',
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity_available INTEGER NOT NULL DEFAULT 0,
  available INTEGER NOT NULL DEFAULT 1,
  total_sold INTEGER NOT NULL DEFAULT 0,
  total_revenue TEXT NOT NULL DEFAULT '0',
  description TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range stockTestDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newProduce(t *testing.T, db *gorm.DB, qty int) *models.Produce {
	t.Helper()

	row := &models.Produce{
		ID:                uuid.New(),
		FarmerID:          uuid.New(),
		Name:              "Yams",
		Unit:              enums.ProduceUnitTubers,
		Price:             decimal.NewFromInt(5),
		QuantityAvailable: qty,
		Available:         qty > 0,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func newVariant(t *testing.T, db *gorm.DB, qty int) *models.ProductVariant {
	t.Helper()

	row := &models.ProductVariant{
		ID:                uuid.New(),
		FarmerID:          uuid.New(),
		Name:              "Dried Beans 5kg",
		Unit:              enums.ProduceUnitSacs,
		Price:             decimal.NewFromInt(12),
		QuantityAvailable: qty,
		Available:         qty > 0,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func newStockService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestReserveDecrementsStock(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 10)

	var snapshot map[uuid.UUID]Entry
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		snapshot, txErr = svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 4}})
		return txErr
	})
	require.NoError(t, err)
	require.Contains(t, snapshot, produce.ID)
	assert.True(t, snapshot[produce.ID].Price.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "Yams", snapshot[produce.ID].Name)
	assert.Equal(t, enums.ProduceUnitTubers, snapshot[produce.ID].Unit)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 6, got.QuantityAvailable)
	assert.True(t, got.Available)
}

func TestReserveMixedCatalogKinds(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 10)
	variant := newVariant(t, db, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{
			{EntryID: produce.ID, Quantity: 2},
			{Kind: enums.CatalogEntryDryGoods, EntryID: variant.ID, Quantity: 3},
		})
		return txErr
	})
	require.NoError(t, err)

	var gotProduce models.Produce
	require.NoError(t, db.First(&gotProduce, "id = ?", produce.ID).Error)
	assert.Equal(t, 8, gotProduce.QuantityAvailable)

	var gotVariant models.ProductVariant
	require.NoError(t, db.First(&gotVariant, "id = ?", variant.ID).Error)
	assert.Equal(t, 2, gotVariant.QuantityAvailable)
}

func TestReserveFlipsAvailableAtZero(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 3}})
		return txErr
	})
	require.NoError(t, err)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 0, got.QuantityAvailable)
	assert.False(t, got.Available)
}

func TestReserveShortageReportsAvailable(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 5}})
		return txErr
	})
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	lines, ok := details["lines"].([]ShortageDetail)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Requested)
	assert.Equal(t, 2, lines[0].Available)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 2, got.QuantityAvailable)
}

func TestReserveAllOrNothing(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	plenty := newProduce(t, db, 100)
	scarce := newProduce(t, db, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{
			{EntryID: plenty.ID, Quantity: 10},
			{EntryID: scarce.ID, Quantity: 2},
		})
		return txErr
	})
	require.Error(t, err)

	// Neither line may have been applied.
	var gotPlenty models.Produce
	require.NoError(t, db.First(&gotPlenty, "id = ?", plenty.ID).Error)
	assert.Equal(t, 100, gotPlenty.QuantityAvailable)
	var gotScarce models.Produce
	require.NoError(t, db.First(&gotScarce, "id = ?", scarce.ID).Error)
	assert.Equal(t, 1, gotScarce.QuantityAvailable)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 0}})
		return txErr
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReserveUnknownEntry(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: uuid.New(), Quantity: 1}})
		return txErr
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

// Two checkouts compete for a lot of 10: the 7 wins, the 5 must lose even
// though its earlier validation read saw enough stock, and exactly 3 units
// remain for the loser to observe.
func TestDecrementGuardedStopsCompetingReservation(t *testing.T) {
	db := setupStockTestDB(t)
	repo := NewRepository(db)
	produce := newProduce(t, db, 10)

	first, err := repo.DecrementGuarded(context.Background(), enums.CatalogEntryProduce, produce.ID, 7)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.DecrementGuarded(context.Background(), enums.CatalogEntryProduce, produce.ID, 5)
	require.NoError(t, err)
	assert.False(t, second)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 3, got.QuantityAvailable)
	assert.True(t, got.Available)
}

func TestReserveAfterCompetingCheckoutReportsRemaining(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 10)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 7}})
		return txErr
	}))

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 5}})
		return txErr
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	lines, ok := details["lines"].([]ShortageDetail)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Available)
}

func TestReleaseRestoresStockAndRelists(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, txErr := svc.Reserve(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 3}})
		return txErr
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Release(context.Background(), tx, []Line{{EntryID: produce.ID, Quantity: 3}})
	})
	require.NoError(t, err)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 3, got.QuantityAvailable)
	assert.True(t, got.Available)
}

func TestRecordSaleBumpsCounters(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	produce := newProduce(t, db, 10)

	item := models.OrderItem{
		ProduceID: &produce.ID,
		Quantity:  4,
		UnitPrice: decimal.NewFromInt(5),
		Subtotal:  decimal.NewFromInt(20),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordSale(context.Background(), tx, item)
	})
	require.NoError(t, err)

	var got models.Produce
	require.NoError(t, db.First(&got, "id = ?", produce.ID).Error)
	assert.Equal(t, 4, got.TotalSold)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(20)))
}

func TestRecordSaleDispatchesOnCatalogKind(t *testing.T) {
	db := setupStockTestDB(t)
	svc := newStockService(t, db)
	variant := newVariant(t, db, 10)

	item := models.OrderItem{
		VariantID: &variant.ID,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(12),
		Subtotal:  decimal.NewFromInt(24),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.RecordSale(context.Background(), tx, item)
	})
	require.NoError(t, err)

	var got models.ProductVariant
	require.NoError(t, db.First(&got, "id = ?", variant.ID).Error)
	assert.Equal(t, 2, got.TotalSold)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(24)))
}
