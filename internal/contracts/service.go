package contracts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbridge/farmbridge-backend/internal/orders"
	"github.com/farmbridge/farmbridge-backend/internal/stock"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	"github.com/farmbridge/farmbridge-backend/pkg/enums"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateContractInput captures a new recurring agreement.
type CreateContractInput struct {
	BuyerID           uuid.UUID
	FarmerID          uuid.UUID
	Frequency         enums.ContractFrequency
	FirstDeliveryDate time.Time
	Items             []ContractLineInput
}

// ContractLineInput is one agreed line of a new contract.
type ContractLineInput struct {
	ProduceID       uuid.UUID
	Quantity        int
	AgreedUnitPrice decimal.Decimal
}

// CycleReport summarizes one run over the due contracts.
type CycleReport struct {
	Due     int `json:"due"`
	Placed  int `json:"placed"`
	Skipped int `json:"skipped"`
}

// Service manages recurring contract orders and their cycle runs.
type Service interface {
	Create(ctx context.Context, input CreateContractInput) (*models.ContractOrder, error)
	Get(ctx context.Context, contractID uuid.UUID) (*models.ContractOrder, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ContractOrder, error)
	Deactivate(ctx context.Context, contractID uuid.UUID) error
	RunDueContracts(ctx context.Context, asOf time.Time) (*CycleReport, error)
}

type service struct {
	repo      Repository
	orders    orders.Service
	stockRepo stock.Repository
	tx        txRunner
	events    outboxEmitter
	logg      *logger.Logger
}

// NewService wires a contracts service.
func NewService(
	repo Repository,
	orderSvc orders.Service,
	stockRepo stock.Repository,
	tx txRunner,
	events outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contracts repository required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:      repo,
		orders:    orderSvc,
		stockRepo: stockRepo,
		tx:        tx,
		events:    events,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateContractInput) (*models.ContractOrder, error) {
	if input.BuyerID == uuid.Nil || input.FarmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and farmer id are required")
	}
	if !input.Frequency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid frequency %q", input.Frequency))
	}
	if input.FirstDeliveryDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first delivery date is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract needs at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"produce_id": item.ProduceID})
		}
		if item.AgreedUnitPrice.IsNegative() || item.AgreedUnitPrice.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agreed unit price must be positive").
				WithDetails(map[string]any{"produce_id": item.ProduceID})
		}
	}

	contract := &models.ContractOrder{
		ID:               uuid.New(),
		BuyerID:          input.BuyerID,
		FarmerID:         input.FarmerID,
		Frequency:        input.Frequency,
		NextDeliveryDate: input.FirstDeliveryDate,
		Active:           true,
	}
	for _, item := range input.Items {
		contract.Items = append(contract.Items, models.ContractItem{
			ContractID:      contract.ID,
			ProduceID:       item.ProduceID,
			Quantity:        item.Quantity,
			AgreedUnitPrice: item.AgreedUnitPrice,
		})
	}
	if err := s.repo.Create(ctx, contract); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
	}
	return contract, nil
}

func (s *service) Get(ctx context.Context, contractID uuid.UUID) (*models.ContractOrder, error) {
	contract, err := s.repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	if contract == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	return contract, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ContractOrder, error) {
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	return rows, nil
}

func (s *service) Deactivate(ctx context.Context, contractID uuid.UUID) error {
	contract, err := s.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if !contract.Active {
		return nil
	}
	contract.Active = false
	if err := s.repo.Save(ctx, contract); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate contract")
	}
	return nil
}

// RunDueContracts places one order per due contract at the agreed prices.
// Lines the current stock cannot cover are dropped from the cycle order;
// a contract whose lines are all short is skipped entirely. Either way the
// next delivery date advances so a bad cycle cannot wedge the schedule.
func (s *service) RunDueContracts(ctx context.Context, asOf time.Time) (*CycleReport, error) {
	due, err := s.repo.ListDue(ctx, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due contracts")
	}

	report := &CycleReport{Due: len(due)}
	for i := range due {
		contract := due[i]
		placed, err := s.runCycle(ctx, &contract)
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"contract_id": contract.ID.String()})
				s.logg.Error(logCtx, "contract cycle failed", err)
			}
			report.Skipped++
			continue
		}
		if placed {
			report.Placed++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}

func (s *service) runCycle(ctx context.Context, contract *models.ContractOrder) (bool, error) {
	lines, err := s.coveredLines(ctx, contract)
	if err != nil {
		return false, err
	}

	placed := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if len(lines) > 0 {
			order, err := s.orders.AssembleTx(ctx, tx, contract.BuyerID, lines)
			if err != nil {
				return err
			}
			placed = true

			err = s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventContractCycleRun,
				AggregateType: enums.AggregateContract,
				AggregateID:   contract.ID,
				Version:       1,
				Data: payloads.ContractCycleRunEvent{
					ContractID:       contract.ID,
					OrderID:          order.ID,
					BuyerID:          contract.BuyerID,
					FarmerID:         contract.FarmerID,
					NextDeliveryDate: contract.Frequency.Next(contract.NextDeliveryDate),
				},
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit contract cycle event")
			}
		}

		contract.NextDeliveryDate = contract.Frequency.Next(contract.NextDeliveryDate)
		if err := s.repo.WithTx(tx).Save(ctx, contract); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance contract schedule")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return placed, nil
}

// coveredLines keeps only the contract lines the current stock can satisfy.
func (s *service) coveredLines(ctx context.Context, contract *models.ContractOrder) ([]orders.AssembleLine, error) {
	ids := make([]uuid.UUID, 0, len(contract.Items))
	for _, item := range contract.Items {
		ids = append(ids, item.ProduceID)
	}
	rows, err := s.stockRepo.ListEntries(ctx, enums.CatalogEntryProduce, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load produce for contract cycle")
	}
	byID := make(map[uuid.UUID]stock.Entry, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	lines := make([]orders.AssembleLine, 0, len(contract.Items))
	for i := range contract.Items {
		item := contract.Items[i]
		produce, ok := byID[item.ProduceID]
		if !ok || !produce.Available || produce.QuantityAvailable < item.Quantity {
			continue
		}
		price := item.AgreedUnitPrice
		lines = append(lines, orders.AssembleLine{
			Kind:            enums.CatalogEntryProduce,
			EntryID:         item.ProduceID,
			Quantity:        item.Quantity,
			AgreedUnitPrice: &price,
		})
	}
	return lines, nil
}
