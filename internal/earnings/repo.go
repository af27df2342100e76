package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

// Repository exposes persistence helpers for farmer earnings accrual.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []models.FarmerEarning) error
	ListByOrder(ctx context.Context, orderID uuid.UUID, status *enums.EarningStatus) ([]models.FarmerEarning, error)
	ConfirmPending(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error)
	MarkConfirmedPaid(ctx context.Context, farmerID uuid.UUID, at time.Time) (int64, error)
	SumByFarmerAndStatus(ctx context.Context, farmerID uuid.UUID, status enums.EarningStatus) (decimal.Decimal, error)
	ListByFarmer(ctx context.Context, params listEarningsParams) ([]models.FarmerEarning, *pagination.Cursor, error)
	BumpFarmerCounters(ctx context.Context, farmerUserID uuid.UUID, earned decimal.Decimal) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an earnings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listEarningsParams struct {
	FarmerID uuid.UUID
	Status   *enums.EarningStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, rows []models.FarmerEarning) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repositoryImpl) ListByOrder(ctx context.Context, orderID uuid.UUID, status *enums.EarningStatus) ([]models.FarmerEarning, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var rows []models.FarmerEarning
	err := query.Order("id ASC").Find(&rows).Error
	return rows, err
}

// ConfirmPending flips every PENDING earning of the order to CONFIRMED.
// The status guard makes repeated confirmation attempts affect zero rows.
func (r *repositoryImpl) ConfirmPending(ctx context.Context, orderID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE farmer_earnings
		SET status = ?, confirmed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND status = ?
	`, enums.EarningStatusConfirmed, at, orderID, enums.EarningStatusPending)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkConfirmedPaid settles every CONFIRMED earning of the farmer.
func (r *repositoryImpl) MarkConfirmedPaid(ctx context.Context, farmerID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE farmer_earnings
		SET status = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE farmer_id = ? AND status = ?
	`, enums.EarningStatusPaid, at, farmerID, enums.EarningStatusConfirmed)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repositoryImpl) SumByFarmerAndStatus(ctx context.Context, farmerID uuid.UUID, status enums.EarningStatus) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.FarmerEarning{}).
		Select("SUM(amount)").
		Where("farmer_id = ? AND status = ?", farmerID, status).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repositoryImpl) ListByFarmer(ctx context.Context, params listEarningsParams) ([]models.FarmerEarning, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.FarmerEarning{}).
		Where("farmer_id = ?", params.FarmerID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.FarmerEarning
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

// BumpFarmerCounters adds one confirmed order's takings to the farmer profile.
func (r *repositoryImpl) BumpFarmerCounters(ctx context.Context, farmerUserID uuid.UUID, earned decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE farmer_profiles
		SET total_earnings = total_earnings + ?,
			total_orders = total_orders + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`, earned, farmerUserID).Error
}
