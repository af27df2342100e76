package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
)

// Repository exposes persistence helpers for pricing tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tier *models.PricingTier) error
	Update(ctx context.Context, tier *models.PricingTier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProduce(ctx context.Context, produceID uuid.UUID) ([]models.PricingTier, error)
	BestBuyerTier(ctx context.Context, produceID, buyerID uuid.UUID, qty int, unit enums.ProduceUnit) (*models.PricingTier, error)
	BestGlobalTier(ctx context.Context, produceID uuid.UUID, qty int, unit enums.ProduceUnit) (*models.PricingTier, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, tier *models.PricingTier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

func (r *repositoryImpl) Update(ctx context.Context, tier *models.PricingTier) error {
	return r.db.WithContext(ctx).Save(tier).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PricingTier, error) {
	var tier models.PricingTier
	err := r.db.WithContext(ctx).First(&tier, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PricingTier{}, "id = ?", id).Error
}

func (r *repositoryImpl) ListByProduce(ctx context.Context, produceID uuid.UUID) ([]models.PricingTier, error) {
	var tiers []models.PricingTier
	err := r.db.WithContext(ctx).
		Where("produce_id = ?", produceID).
		Order("min_quantity ASC").
		Find(&tiers).Error
	return tiers, err
}

// BestBuyerTier returns the buyer-specific tier with the highest quantity
// break the requested quantity clears, or nil when none applies.
func (r *repositoryImpl) BestBuyerTier(ctx context.Context, produceID, buyerID uuid.UUID, qty int, unit enums.ProduceUnit) (*models.PricingTier, error) {
	return r.bestTier(ctx, r.db.WithContext(ctx).
		Where("produce_id = ? AND buyer_id = ? AND active = ? AND unit = ? AND min_quantity <= ?",
			produceID, buyerID, true, unit, qty))
}

// BestGlobalTier is the buyer-agnostic fallback.
func (r *repositoryImpl) BestGlobalTier(ctx context.Context, produceID uuid.UUID, qty int, unit enums.ProduceUnit) (*models.PricingTier, error) {
	return r.bestTier(ctx, r.db.WithContext(ctx).
		Where("produce_id = ? AND buyer_id IS NULL AND active = ? AND unit = ? AND min_quantity <= ?",
			produceID, true, unit, qty))
}

func (r *repositoryImpl) bestTier(ctx context.Context, query *gorm.DB) (*models.PricingTier, error) {
	var tier models.PricingTier
	err := query.Order("min_quantity DESC").First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}
