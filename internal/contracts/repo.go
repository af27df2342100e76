package contracts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
)

// Repository exposes persistence helpers for recurring contract orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contract *models.ContractOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContractOrder, error)
	Save(ctx context.Context, contract *models.ContractOrder) error
	ListDue(ctx context.Context, asOf time.Time) ([]models.ContractOrder, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ContractOrder, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a contracts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, contract *models.ContractOrder) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ContractOrder, error) {
	var contract models.ContractOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&contract, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *repositoryImpl) Save(ctx context.Context, contract *models.ContractOrder) error {
	return r.db.WithContext(ctx).Omit("Items").Save(contract).Error
}

// ListDue returns the active contracts whose next delivery date has arrived.
func (r *repositoryImpl) ListDue(ctx context.Context, asOf time.Time) ([]models.ContractOrder, error) {
	var rows []models.ContractOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("active = ? AND next_delivery_date <= ?", true, asOf).
		Order("next_delivery_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ContractOrder, error) {
	var rows []models.ContractOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
