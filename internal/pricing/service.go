package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
)

// PriceSource says which rule produced a resolved unit price.
type PriceSource string

const (
	SourceListPrice  PriceSource = "list_price"
	SourceBuyerTier  PriceSource = "buyer_tier"
	SourceGlobalTier PriceSource = "global_tier"
)

// ResolveInput carries everything needed to price one order line.
type ResolveInput struct {
	ProduceID uuid.UUID
	BuyerID   uuid.UUID
	Quantity  int
	Unit      enums.ProduceUnit
	ListPrice decimal.Decimal
}

// ResolvedPrice is the unit price plus its provenance.
type ResolvedPrice struct {
	UnitPrice decimal.Decimal
	Source    PriceSource
	TierID    *uuid.UUID
}

// CreateTierInput captures a new quantity break.
type CreateTierInput struct {
	ProduceID   uuid.UUID
	BuyerID     *uuid.UUID
	MinQuantity int
	UnitPrice   decimal.Decimal
	Unit        enums.ProduceUnit
}

// UpdateTierInput applies partial changes to a tier.
type UpdateTierInput struct {
	MinQuantity *int
	UnitPrice   *decimal.Decimal
	Active      *bool
}

// Service resolves unit prices and manages pricing tiers.
type Service interface {
	Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*ResolvedPrice, error)
	CreateTier(ctx context.Context, input CreateTierInput) (*models.PricingTier, error)
	UpdateTier(ctx context.Context, tierID uuid.UUID, input UpdateTierInput) (*models.PricingTier, error)
	DeleteTier(ctx context.Context, tierID uuid.UUID) error
	ListTiers(ctx context.Context, produceID uuid.UUID) ([]models.PricingTier, error)
}

type service struct {
	repo Repository
}

// NewService wires a pricing service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve picks the unit price for a line: the buyer's own tier wins, then
// the best global tier, then the produce list price. Quantity breaks compare
// on min_quantity and the highest break the quantity clears applies.
func (s *service) Resolve(ctx context.Context, tx *gorm.DB, input ResolveInput) (*ResolvedPrice, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}

	if input.BuyerID != uuid.Nil {
		tier, err := repo.BestBuyerTier(ctx, input.ProduceID, input.BuyerID, input.Quantity, input.Unit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve buyer tier")
		}
		if tier != nil {
			return &ResolvedPrice{UnitPrice: tier.UnitPrice, Source: SourceBuyerTier, TierID: &tier.ID}, nil
		}
	}

	tier, err := repo.BestGlobalTier(ctx, input.ProduceID, input.Quantity, input.Unit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve global tier")
	}
	if tier != nil {
		return &ResolvedPrice{UnitPrice: tier.UnitPrice, Source: SourceGlobalTier, TierID: &tier.ID}, nil
	}

	return &ResolvedPrice{UnitPrice: input.ListPrice, Source: SourceListPrice}, nil
}

func (s *service) CreateTier(ctx context.Context, input CreateTierInput) (*models.PricingTier, error) {
	if input.ProduceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "produce id is required")
	}
	if input.MinQuantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min quantity must be positive")
	}
	if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}

	tier := &models.PricingTier{
		ProduceID:   input.ProduceID,
		BuyerID:     input.BuyerID,
		MinQuantity: input.MinQuantity,
		UnitPrice:   input.UnitPrice,
		Unit:        input.Unit,
		Active:      true,
	}
	if err := s.repo.Create(ctx, tier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pricing tier")
	}
	return tier, nil
}

func (s *service) UpdateTier(ctx context.Context, tierID uuid.UUID, input UpdateTierInput) (*models.PricingTier, error) {
	tier, err := s.repo.FindByID(ctx, tierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing tier")
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing tier not found")
	}

	if input.MinQuantity != nil {
		if *input.MinQuantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min quantity must be positive")
		}
		tier.MinQuantity = *input.MinQuantity
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() || input.UnitPrice.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be positive")
		}
		tier.UnitPrice = *input.UnitPrice
	}
	if input.Active != nil {
		tier.Active = *input.Active
	}

	if err := s.repo.Update(ctx, tier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pricing tier")
	}
	return tier, nil
}

func (s *service) DeleteTier(ctx context.Context, tierID uuid.UUID) error {
	tier, err := s.repo.FindByID(ctx, tierID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pricing tier")
	}
	if tier == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pricing tier not found")
	}
	if err := s.repo.Delete(ctx, tierID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pricing tier")
	}
	return nil
}

func (s *service) ListTiers(ctx context.Context, produceID uuid.UUID) ([]models.PricingTier, error) {
	tiers, err := s.repo.ListByProduce(ctx, produceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pricing tiers")
	}
	return tiers, nil
}
