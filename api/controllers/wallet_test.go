package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbridge/farmbridge-backend/api/middleware"
	"github.com/farmbridge/farmbridge-backend/internal/wallet"
	"github.com/farmbridge/farmbridge-backend/pkg/db/models"
	pkgerrors "github.com/farmbridge/farmbridge-backend/pkg/errors"
	"github.com/farmbridge/farmbridge-backend/pkg/pagination"
)

type stubWalletService struct {
	deposit    wallet.DepositInput
	depositErr error
	payment    *models.Payment
	payErr     error
	payAmount  *decimal.Decimal
}

func (s *stubWalletService) GetOrCreate(context.Context, uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{Balance: decimal.NewFromInt(50)}, nil
}

func (s *stubWalletService) Deposit(_ context.Context, input wallet.DepositInput) (*models.WalletTransaction, error) {
	s.deposit = input
	if s.depositErr != nil {
		return nil, s.depositErr
	}
	return &models.WalletTransaction{Amount: input.Amount}, nil
}

func (s *stubWalletService) PayOrder(_ context.Context, _ uuid.UUID, _ uuid.UUID, amount *decimal.Decimal) (*models.Payment, error) {
	s.payAmount = amount
	return s.payment, s.payErr
}

func (s *stubWalletService) Refund(context.Context, wallet.RefundInput) (*models.Payment, error) {
	return s.payment, s.payErr
}

func (s *stubWalletService) ListTransactions(context.Context, uuid.UUID, pagination.Params) (*wallet.TransactionsResult, error) {
	return &wallet.TransactionsResult{}, nil
}

func jsonRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithUserID(req.Context(), userID.String())
	return req.WithContext(ctx)
}

func TestWalletDepositParsesAmount(t *testing.T) {
	svc := &stubWalletService{}
	userID := uuid.New()

	req := jsonRequest(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"25.50"}`, userID)
	resp := httptest.NewRecorder()
	WalletDeposit(svc, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.deposit.UserID != userID {
		t.Fatalf("expected deposit for %s got %s", userID, svc.deposit.UserID)
	}
	if !svc.deposit.Amount.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("unexpected amount %s", svc.deposit.Amount)
	}
}

func TestWalletDepositRejectsBadAmount(t *testing.T) {
	req := jsonRequest(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"lots"}`, uuid.New())
	resp := httptest.NewRecorder()
	WalletDeposit(&stubWalletService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPayOrderDefaultsToOrderTotal(t *testing.T) {
	svc := &stubWalletService{payment: &models.Payment{}}
	orderID := uuid.New()

	req := jsonRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", "", uuid.New())
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	PayOrder(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.payAmount != nil {
		t.Fatalf("expected nil amount for empty body, got %s", svc.payAmount)
	}
}

func TestPayOrderPassesExplicitAmount(t *testing.T) {
	svc := &stubWalletService{payment: &models.Payment{}}
	orderID := uuid.New()

	req := jsonRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", `{"amount":"45.50"}`, uuid.New())
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	PayOrder(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.payAmount == nil || !svc.payAmount.Equal(decimal.RequireFromString("45.50")) {
		t.Fatalf("expected amount 45.50, got %v", svc.payAmount)
	}
}

func TestPayOrderMapsInsufficientBalance(t *testing.T) {
	svc := &stubWalletService{
		payErr: pkgerrors.New(pkgerrors.CodeInsufficientBalance, "wallet balance too low").
			WithDetails(map[string]any{"balance": "10.00", "required": "26.00"}),
	}
	orderID := uuid.New()

	req := jsonRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/pay", "", uuid.New())
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	PayOrder(svc, nil)(resp, req)

	if resp.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details["required"] != "26.00" {
		t.Fatalf("expected required detail, got %v", body.Error.Details)
	}
}
