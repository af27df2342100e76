package stock

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
)

// Line is one catalog entry/quantity pair to reserve or release. A zero
// Kind means a produce lot, the common case.
type Line struct {
	Kind     enums.CatalogEntryKind
	EntryID  uuid.UUID
	Quantity int
}

func (l Line) kind() enums.CatalogEntryKind {
	if l.Kind == "" {
		return enums.CatalogEntryProduce
	}
	return l.Kind
}

// ShortageDetail reports how a reservation line failed.
type ShortageDetail struct {
	Kind      enums.CatalogEntryKind `json:"kind"`
	EntryID   uuid.UUID              `json:"entry_id"`
	Requested int                    `json:"requested"`
	Available int                    `json:"available"`
}

// Service reserves and releases catalog stock inside caller transactions.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []Line) (map[uuid.UUID]Entry, error)
	Release(ctx context.Context, tx *gorm.DB, lines []Line) error
	RecordSale(ctx context.Context, tx *gorm.DB, item models.OrderItem) error
}

type service struct {
	repo Repository
}

// NewService wires a stock service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

// Reserve locks every referenced row, checks each line against current
// stock, then applies guarded decrements. Any shortage fails the whole
// reservation and reports the available quantity for each failing line.
// The returned map holds the entries as read at reservation time so callers
// can freeze names, units, and prices from the same snapshot.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) (map[uuid.UUID]Entry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no lines to reserve")
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"entry_id": line.EntryID})
		}
		if !line.kind().IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid catalog entry kind %q", line.Kind))
		}
	}

	repo := s.repo.WithTx(tx)

	// Deterministic order keeps concurrent checkouts from deadlocking.
	sorted := make([]Line, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].kind() != sorted[j].kind() {
			return sorted[i].kind() < sorted[j].kind()
		}
		return sorted[i].EntryID.String() < sorted[j].EntryID.String()
	})

	idsByKind := map[enums.CatalogEntryKind][]uuid.UUID{}
	for _, line := range sorted {
		idsByKind[line.kind()] = append(idsByKind[line.kind()], line.EntryID)
	}
	byID := make(map[uuid.UUID]Entry)
	for _, kind := range []enums.CatalogEntryKind{enums.CatalogEntryDryGoods, enums.CatalogEntryMixedBox, enums.CatalogEntryProduce} {
		ids, ok := idsByKind[kind]
		if !ok {
			continue
		}
		rows, err := repo.ListEntries(ctx, kind, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog entries for reservation")
		}
		for _, row := range rows {
			byID[row.ID] = row
		}
	}

	shortages := []ShortageDetail{}
	for _, line := range sorted {
		row, ok := byID[line.EntryID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found").
				WithDetails(map[string]any{"kind": line.kind(), "entry_id": line.EntryID})
		}
		if !row.Available || row.QuantityAvailable < line.Quantity {
			shortages = append(shortages, ShortageDetail{
				Kind:      line.kind(),
				EntryID:   line.EntryID,
				Requested: line.Quantity,
				Available: row.QuantityAvailable,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"lines": shortages})
	}

	for _, line := range sorted {
		ok, err := repo.DecrementGuarded(ctx, line.kind(), line.EntryID, line.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
		}
		if !ok {
			// Should not happen while the rows stay locked; if the guard
			// still rejects, report the current quantity and roll back.
			current, readErr := repo.ListEntries(ctx, line.kind(), []uuid.UUID{line.EntryID})
			available := 0
			if readErr == nil && len(current) == 1 {
				available = current[0].QuantityAvailable
			}
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"lines": []ShortageDetail{{
					Kind:      line.kind(),
					EntryID:   line.EntryID,
					Requested: line.Quantity,
					Available: available,
				}}})
		}
	}

	return byID, nil
}

// Release restores stock for the given lines and re-lists the entries.
func (s *service) Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if err := repo.Increment(ctx, line.kind(), line.EntryID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
		}
	}
	return nil
}

// RecordSale bumps total_sold and total_revenue for a confirmed order item
// on whichever catalog table the item references.
func (s *service) RecordSale(ctx context.Context, tx *gorm.DB, item models.OrderItem) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for sale counters")
	}
	kind, entryID := item.CatalogRef()
	if entryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order item has no catalog reference")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.RecordSale(ctx, kind, entryID, item.Quantity, item.Subtotal); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale")
	}
	return nil
}
