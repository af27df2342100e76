package wallet

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
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox/payloads"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DepositInput tops up a user wallet.
type DepositInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference *string
}

// RefundInput returns part or all of a settled payment to the buyer wallet.
type RefundInput struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Reference *string
}

// TransactionsResult is one page of ledger entries.
type TransactionsResult struct {
	Items      []models.WalletTransaction `json:"items"`
	NextCursor *string                    `json:"next_cursor,omitempty"`
}

// Service owns wallet balances, the transaction ledger, and order payments.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, input DepositInput) (*models.WalletTransaction, error)
	PayOrder(ctx context.Context, buyerID, orderID uuid.UUID, amount *decimal.Decimal) (*models.Payment, error)
	Refund(ctx context.Context, input RefundInput) (*models.Payment, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionsResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	events outboxEmitter
	logg   *logger.Logger
}

// NewService wires a wallet service.
func NewService(repo Repository, tx txRunner, events outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, events: events, logg: logg}, nil
}

// GetOrCreate returns the user's wallet, opening an empty one on first touch.
func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	wallet, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	if wallet != nil {
		return wallet, nil
	}
	wallet = &models.Wallet{UserID: userID, Balance: decimal.Zero}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wallet")
	}
	return wallet, nil
}

// Deposit credits the wallet and appends a DEPOSIT ledger entry atomically.
func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.WalletTransaction, error) {
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit amount must be positive")
	}
	wallet, err := s.GetOrCreate(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	var txn *models.WalletTransaction
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.FindByIDForUpdate(ctx, wallet.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}
		if locked == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		if err := repo.Credit(ctx, locked.ID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
		}
		balanceAfter := locked.Balance.Add(input.Amount)

		txn = &models.WalletTransaction{
			WalletID:     wallet.ID,
			Type:         enums.WalletTransactionDeposit,
			Amount:       input.Amount,
			BalanceAfter: balanceAfter,
			Reference:    input.Reference,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletDeposited,
			AggregateType: enums.AggregateWallet,
			AggregateID:   wallet.ID,
			Version:       1,
			Data: payloads.WalletDepositedEvent{
				WalletID:     wallet.ID,
				UserID:       input.UserID,
				Amount:       input.Amount,
				BalanceAfter: balanceAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// PayOrder settles an order from the buyer's wallet. The amount defaults to
// the order total when nil; an explicit amount may not exceed it. Repeating
// the call for an already paid order returns the existing payment unchanged.
func (s *service) PayOrder(ctx context.Context, buyerID, orderID uuid.UUID, amount *decimal.Decimal) (*models.Payment, error) {
	if buyerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and order id are required")
	}
	if amount != nil && (amount.IsNegative() || amount.IsZero()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if order.PaymentStatus == enums.OrderPaymentStatusPaid {
			existing, err := repo.FindPaymentByOrder(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
			}
			payment = existing
			return nil
		}
		if order.PaymentStatus != enums.OrderPaymentStatusUnpaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment already settled").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		charge := order.TotalAmount
		if amount != nil {
			if amount.GreaterThan(order.TotalAmount) {
				return pkgerrors.New(pkgerrors.CodeValidation, "payment amount exceeds order total").
					WithDetails(map[string]any{"total": order.TotalAmount, "requested": *amount})
			}
			charge = *amount
		}

		wallet, err := repo.FindByUserForUpdate(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}
		if wallet == nil {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance").
				WithDetails(map[string]any{"balance": decimal.Zero, "required": charge})
		}

		ok, err := repo.DebitGuarded(ctx, wallet.ID, charge)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit wallet")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance").
				WithDetails(map[string]any{"balance": wallet.Balance, "required": charge})
		}

		txn := &models.WalletTransaction{
			WalletID:     wallet.ID,
			Type:         enums.WalletTransactionPayment,
			Amount:       charge,
			BalanceAfter: wallet.Balance.Sub(charge),
			OrderID:      &orderID,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		payment = &models.Payment{
			OrderID:        orderID,
			WalletID:       wallet.ID,
			Amount:         charge,
			RefundedAmount: decimal.Zero,
			Status:         enums.PaymentStatusSucceeded,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		order.PaymentStatus = enums.OrderPaymentStatusPaid
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSucceeded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentSucceededEvent{
				PaymentID: payment.ID,
				OrderID:   orderID,
				BuyerID:   buyerID,
				Amount:    charge,
				PaidAt:    time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Refund credits the buyer wallet back. Cumulative refunds may never exceed
// the captured amount; the payment status tracks partial vs full refunds.
func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.Amount.IsNegative() || input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindPaymentByOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for order")
		}
		if existing.Status != enums.PaymentStatusSucceeded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not refundable").
				WithDetails(map[string]any{"status": existing.Status})
		}

		// The guard re-checks the cap inside the UPDATE itself, so the
		// cumulative total can never pass the captured amount even if this
		// read were stale.
		ok, err := repo.AccumulateRefundGuarded(ctx, existing.ID, input.Amount)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accumulate refund")
		}
		if !ok {
			remaining := existing.Amount.Sub(existing.RefundedAmount)
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds remaining captured amount").
				WithDetails(map[string]any{"remaining": remaining, "requested": input.Amount})
		}
		existing.RefundedAmount = existing.RefundedAmount.Add(input.Amount)

		lockedWallet, err := repo.FindByIDForUpdate(ctx, existing.WalletID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
		}
		if lockedWallet == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		if err := repo.Credit(ctx, lockedWallet.ID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit wallet")
		}

		txn := &models.WalletTransaction{
			WalletID:     existing.WalletID,
			Type:         enums.WalletTransactionRefund,
			Amount:       input.Amount,
			BalanceAfter: lockedWallet.Balance.Add(input.Amount),
			OrderID:      &input.OrderID,
			Reference:    input.Reference,
		}
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order.RefundedAmount = existing.RefundedAmount
		if existing.RefundedAmount.GreaterThanOrEqual(existing.Amount) {
			order.PaymentStatus = enums.OrderPaymentStatusRefunded
		} else {
			order.PaymentStatus = enums.OrderPaymentStatusPartiallyRefunded
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}

		payment = existing
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   existing.ID,
			Version:       1,
			Data: payloads.OrderRefundedEvent{
				PaymentID:      existing.ID,
				OrderID:        input.OrderID,
				BuyerID:        order.BuyerID,
				Amount:         input.Amount,
				TotalRefunded:  existing.RefundedAmount,
				ResultingState: order.PaymentStatus,
				RefundedAt:     time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionsResult, error) {
	wallet, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListTransactions(ctx, listTransactionsParams{
		WalletID: wallet.ID,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	result := &TransactionsResult{Items: rows}
	if next != nil {
		encoded := next.Encode()
		result.NextCursor = &encoded
	}
	return result, nil
}
