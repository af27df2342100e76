package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PayoutResult reports one disbursement run for a farmer.
type PayoutResult struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// EarningsResult is one page of a farmer's earnings.
type EarningsResult struct {
	Items      []models.FarmerEarning `json:"items"`
	NextCursor *string                `json:"next_cursor,omitempty"`
}

// Service tracks the per-item accrual records behind farmer payouts.
// Accrual and confirmation run inside the caller's order transaction;
// payout marking opens its own.
type Service interface {
	AccrueForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
	ConfirmForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	Payout(ctx context.Context, farmerID uuid.UUID) (*PayoutResult, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, status *enums.EarningStatus, params pagination.Params) (*EarningsResult, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires an earnings service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("earnings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// AccrueForOrder creates one PENDING earning per order item, each worth the
// item subtotal. Quantity and unit price are copied onto the earning so
// payout reporting stands on its own snapshot.
func (s *service) AccrueForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required to accrue earnings")
	}
	if order == nil || len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items to accrue")
	}

	rows := make([]models.FarmerEarning, 0, len(order.Items))
	for _, item := range order.Items {
		rows = append(rows, models.FarmerEarning{
			FarmerID:    item.FarmerID,
			OrderID:     order.ID,
			OrderItemID: item.ID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Subtotal,
			Status:      enums.EarningStatusPending,
		})
	}
	if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue earnings")
	}
	return nil
}

// ConfirmForOrder flips the order's PENDING earnings to CONFIRMED and bumps
// each participating farmer's profile counters. The PENDING guard makes a
// second call for the same order a no-op, so counters never double count.
func (s *service) ConfirmForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required to confirm earnings")
	}
	repo := s.repo.WithTx(tx)

	pending := enums.EarningStatusPending
	rows, err := repo.ListByOrder(ctx, orderID, &pending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending earnings")
	}
	if len(rows) == 0 {
		return nil
	}

	affected, err := repo.ConfirmPending(ctx, orderID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm earnings")
	}
	if affected == 0 {
		return nil
	}

	perFarmer := map[uuid.UUID]decimal.Decimal{}
	for _, row := range rows {
		perFarmer[row.FarmerID] = perFarmer[row.FarmerID].Add(row.Amount)
	}
	for farmerID, earned := range perFarmer {
		if err := repo.BumpFarmerCounters(ctx, farmerID, earned); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump farmer counters")
		}
	}
	return nil
}

// Payout marks every CONFIRMED earning of the farmer PAID and reports the
// disbursed total.
func (s *service) Payout(ctx context.Context, farmerID uuid.UUID) (*PayoutResult, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id is required")
	}

	result := &PayoutResult{Total: decimal.Zero}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		total, err := repo.SumByFarmerAndStatus(ctx, farmerID, enums.EarningStatusConfirmed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum confirmed earnings")
		}
		count, err := repo.MarkConfirmedPaid(ctx, farmerID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earnings paid")
		}
		result.Count = count
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListByFarmer(ctx context.Context, farmerID uuid.UUID, status *enums.EarningStatus, params pagination.Params) (*EarningsResult, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid earning status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByFarmer(ctx, listEarningsParams{
		FarmerID: farmerID,
		Status:   status,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}

	result := &EarningsResult{Items: rows}
	if next != nil {
		encoded := next.Encode()
		result.NextCursor = &encoded
	}
	return result, nil
}
