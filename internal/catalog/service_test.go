package catalog

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
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	produces := `
CREATE TABLE IF NOT EXISTS produces (
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
);`
	require.NoError(t, db.Exec(produces).Error)
	return db
}

func newCatalogService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedProduce(t *testing.T, db *gorm.DB, farmerID uuid.UUID, name string, qty int) *models.Produce {
	t.Helper()
	row := &models.Produce{
		ID:                uuid.New(),
		FarmerID:          farmerID,
		Name:              name,
		Unit:              enums.ProduceUnitKG,
		Price:             decimal.NewFromInt(3),
		QuantityAvailable: qty,
		Available:         qty > 0,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestCreateProduce(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	farmerID := uuid.New()

	dto, err := svc.Create(context.Background(), CreateProduceInput{
		FarmerID: farmerID,
		Name:     "Tomatoes",
		Unit:     enums.ProduceUnitCrates,
		Price:    decimal.NewFromFloat(12.50),
		Quantity: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, farmerID, dto.FarmerID)
	assert.Equal(t, 40, dto.QuantityAvailable)
	assert.True(t, dto.Available)
}

func TestCreateProduceRejectsZeroPrice(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)

	_, err := svc.Create(context.Background(), CreateProduceInput{
		FarmerID: uuid.New(),
		Name:     "Tomatoes",
		Unit:     enums.ProduceUnitCrates,
		Price:    decimal.Zero,
		Quantity: 40,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestUpdateProduceOwnership(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	row := seedProduce(t, db, uuid.New(), "Onions", 10)

	name := "Red Onions"
	_, err := svc.Update(context.Background(), uuid.New(), row.ID, UpdateProduceInput{Name: &name})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestRestockRelistsSoldOutProduce(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	farmerID := uuid.New()
	row := seedProduce(t, db, farmerID, "Plantains", 0)

	dto, err := svc.Restock(context.Background(), farmerID, row.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, dto.QuantityAvailable)
	assert.True(t, dto.Available)
}

func TestRestockRejectsNonPositive(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	farmerID := uuid.New()
	row := seedProduce(t, db, farmerID, "Plantains", 5)

	_, err := svc.Restock(context.Background(), farmerID, row.ID, 0)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListProduceFiltersAndPaginates(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	farmerID := uuid.New()

	seedProduce(t, db, farmerID, "A", 5)
	seedProduce(t, db, farmerID, "B", 0)
	seedProduce(t, db, uuid.New(), "C", 5)

	result, err := svc.List(context.Background(), ListProduceInput{
		FarmerID:      &farmerID,
		OnlyAvailable: true,
		Pagination:    pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "A", result.Items[0].Name)
}
