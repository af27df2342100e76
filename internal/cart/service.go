package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
)

// Service manages the buyer cart lifecycle up to checkout.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, buyerID, produceID uuid.UUID, qty int) (*models.Cart, error)
	UpdateItem(ctx context.Context, buyerID, produceID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, buyerID, produceID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Repository
}

// NewService wires a cart service with its repositories.
func NewService(repo Repository, catalogRepo catalog.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, catalog: catalogRepo}, nil
}

// Get returns the buyer's cart, creating an empty one on first touch.
func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart != nil {
		return cart, nil
	}
	cart = &models.Cart{BuyerID: buyerID}
	if err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, buyerID, produceID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	produce, err := s.catalog.FindByID(ctx, produceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load produce")
	}
	if produce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "produce not found")
	}
	if !produce.Available {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "produce is not available")
	}

	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{CartID: cart.ID, ProduceID: produceID, Quantity: qty}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) UpdateItem(ctx context.Context, buyerID, produceID uuid.UUID, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, buyerID, produceID)
	}
	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.UpdateItemQuantity(ctx, cart.ID, produceID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, produceID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	found, err := s.repo.RemoveItem(ctx, cart.ID, produceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, buyerID)
}

// Clear empties the cart inside the checkout transaction.
func (s *service) Clear(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required to clear cart")
	}
	if err := s.repo.WithTx(tx).ClearItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
