package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

// Repository exposes persistence helpers for produce listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, produce *models.Produce) error
	Save(ctx context.Context, produce *models.Produce) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Produce, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params listProduceParams) ([]models.Produce, *pagination.Cursor, error)
	Restock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listProduceParams struct {
	FarmerID      *uuid.UUID
	Category      *string
	OnlyAvailable bool
	Limit         int
	Cursor        *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, produce *models.Produce) error {
	return r.db.WithContext(ctx).Create(produce).Error
}

func (r *repositoryImpl) Save(ctx context.Context, produce *models.Produce) error {
	return r.db.WithContext(ctx).Save(produce).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Produce, error) {
	var produce models.Produce
	err := r.db.WithContext(ctx).First(&produce, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &produce, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Produce{}, "id = ?", id).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listProduceParams) ([]models.Produce, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Produce{})
	if params.FarmerID != nil {
		query = query.Where("farmer_id = ?", *params.FarmerID)
	}
	if params.Category != nil {
		query = query.Where("category = ?", *params.Category)
	}
	if params.OnlyAvailable {
		query = query.Where("available = ?", true)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Produce
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// Restock adds stock and re-lists the produce. The guard refuses unknown rows.
func (r *repositoryImpl) Restock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE produces
		SET quantity_available = quantity_available + ?,
			available = true,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
