package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// Entry is the stock-bearing snapshot of a catalog entry, read uniformly
// from whichever table the kind lives in.
type Entry struct {
	ID                uuid.UUID              `gorm:"column:id"`
	Kind              enums.CatalogEntryKind `gorm:"-"`
	FarmerID          uuid.UUID              `gorm:"column:farmer_id"`
	Name              string                 `gorm:"column:name"`
	Unit              enums.ProduceUnit      `gorm:"column:unit"`
	Price             decimal.Decimal        `gorm:"column:price"`
	QuantityAvailable int                    `gorm:"column:quantity_available"`
	Available         bool                   `gorm:"column:available"`
}

// Repository exposes the stock mutations used by checkout and confirmation.
// Every method dispatches on the catalog entry kind to the backing table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListEntries(ctx context.Context, kind enums.CatalogEntryKind, ids []uuid.UUID) ([]Entry, error)
	DecrementGuarded(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int) error
	RecordSale(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int, revenue decimal.Decimal) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func tableFor(kind enums.CatalogEntryKind) (string, error) {
	switch kind {
	case enums.CatalogEntryProduce:
		return "produces", nil
	case enums.CatalogEntryMixedBox:
		return "mixed_boxes", nil
	case enums.CatalogEntryDryGoods:
		return "product_variants", nil
	}
	return "", fmt.Errorf("unknown catalog entry kind %q", kind)
}

// ListEntries reads the entries under a FOR UPDATE lock, ordered by id so
// concurrent reservations acquire row locks in the same order.
func (r *repositoryImpl) ListEntries(ctx context.Context, kind enums.CatalogEntryKind, ids []uuid.UUID) ([]Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	var rows []Entry
	query := db.ForUpdate(r.db.WithContext(ctx).Table(table)).
		Where("id IN ?", ids).
		Order("id ASC")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Kind = kind
	}
	return rows, nil
}

// DecrementGuarded subtracts qty only while enough stock remains. The rows
// are already locked by ListEntries inside the same transaction; the guard
// in the WHERE clause keeps the write conditional even so. Available flips
// to false the moment the quantity reaches zero.
func (r *repositoryImpl) DecrementGuarded(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE %s
		SET quantity_available = quantity_available - ?,
			available = CASE WHEN quantity_available - ? <= 0 THEN false ELSE available END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND quantity_available >= ?
	`, table), qty, qty, entryID, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) Increment(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE %s
		SET quantity_available = quantity_available + ?,
			available = true,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, table), qty, entryID).Error
}

// RecordSale bumps the entry's sales counters when an order is confirmed.
func (r *repositoryImpl) RecordSale(ctx context.Context, kind enums.CatalogEntryKind, entryID uuid.UUID, qty int, revenue decimal.Decimal) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(fmt.Sprintf(`
		UPDATE %s
		SET total_sold = total_sold + ?,
			total_revenue = total_revenue + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, table), qty, revenue, entryID).Error
}
