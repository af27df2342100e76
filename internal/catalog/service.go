package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

// CreateProduceInput captures a new produce listing.
type CreateProduceInput struct {
	FarmerID    uuid.UUID
	Name        string
	Category    *string
	Unit        enums.ProduceUnit
	Price       decimal.Decimal
	Quantity    int
	Description *string
}

// UpdateProduceInput applies partial changes to a listing.
type UpdateProduceInput struct {
	Name        *string
	Category    *string
	Unit        *enums.ProduceUnit
	Price       *decimal.Decimal
	Description *string
}

// ListProduceInput filters and paginates the catalog.
type ListProduceInput struct {
	FarmerID      *uuid.UUID
	Category      *string
	OnlyAvailable bool
	Pagination    pagination.Params
}

// ListProduceResult bundles a page of listings with the next cursor.
type ListProduceResult struct {
	Items      []ProduceDTO `json:"items"`
	NextCursor *string      `json:"next_cursor,omitempty"`
}

// Service manages produce listings.
type Service interface {
	Create(ctx context.Context, input CreateProduceInput) (*ProduceDTO, error)
	Update(ctx context.Context, farmerID, produceID uuid.UUID, input UpdateProduceInput) (*ProduceDTO, error)
	Get(ctx context.Context, produceID uuid.UUID) (*ProduceDTO, error)
	Delete(ctx context.Context, farmerID, produceID uuid.UUID) error
	List(ctx context.Context, input ListProduceInput) (*ListProduceResult, error)
	Restock(ctx context.Context, farmerID, produceID uuid.UUID, qty int) (*ProduceDTO, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProduceInput) (*ProduceDTO, error) {
	if input.FarmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	produce := &models.Produce{
		FarmerID:          input.FarmerID,
		Name:              input.Name,
		Category:          input.Category,
		Unit:              input.Unit,
		Price:             input.Price,
		QuantityAvailable: input.Quantity,
		Available:         input.Quantity > 0,
		TotalRevenue:      decimal.Zero,
		Description:       input.Description,
	}
	if err := s.repo.Create(ctx, produce); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create produce")
	}
	dto := toProduceDTO(*produce)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, farmerID, produceID uuid.UUID, input UpdateProduceInput) (*ProduceDTO, error) {
	produce, err := s.ownedProduce(ctx, farmerID, produceID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		produce.Name = *input.Name
	}
	if input.Category != nil {
		produce.Category = input.Category
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", *input.Unit))
		}
		produce.Unit = *input.Unit
	}
	if input.Price != nil {
		if input.Price.IsNegative() || input.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		produce.Price = *input.Price
	}
	if input.Description != nil {
		produce.Description = input.Description
	}

	if err := s.repo.Save(ctx, produce); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update produce")
	}
	dto := toProduceDTO(*produce)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, produceID uuid.UUID) (*ProduceDTO, error) {
	produce, err := s.repo.FindByID(ctx, produceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load produce")
	}
	if produce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "produce not found")
	}
	dto := toProduceDTO(*produce)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, farmerID, produceID uuid.UUID) error {
	if _, err := s.ownedProduce(ctx, farmerID, produceID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, produceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete produce")
	}
	return nil
}

func (s *service) List(ctx context.Context, input ListProduceInput) (*ListProduceResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listProduceParams{
		FarmerID:      input.FarmerID,
		Category:      input.Category,
		OnlyAvailable: input.OnlyAvailable,
		Limit:         input.Pagination.Limit,
		Cursor:        cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list produce")
	}

	result := &ListProduceResult{Items: make([]ProduceDTO, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, toProduceDTO(row))
	}
	if next != nil {
		encoded := next.Encode()
		result.NextCursor = &encoded
	}
	return result, nil
}

func (s *service) Restock(ctx context.Context, farmerID, produceID uuid.UUID, qty int) (*ProduceDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	if _, err := s.ownedProduce(ctx, farmerID, produceID); err != nil {
		return nil, err
	}

	ok, err := s.repo.Restock(ctx, produceID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock produce")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "produce not found")
	}
	return s.Get(ctx, produceID)
}

func (s *service) ownedProduce(ctx context.Context, farmerID, produceID uuid.UUID) (*models.Produce, error) {
	produce, err := s.repo.FindByID(ctx, produceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load produce")
	}
	if produce == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "produce not found")
	}
	if produce.FarmerID != farmerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "produce belongs to another farmer")
	}
	return produce, nil
}
