package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	checkoutsvc "github.com/agustinromero/storefront-backend/internal/checkout"
	ordersvc "github.com/agustinromero/storefront-backend/internal/orders"
	pkgerrors "github.com/agustinromero/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubCheckoutService struct {
	order *ordersvc.OrderDTO
	err   error

	gotUserID uuid.UUID
	gotInput  checkoutsvc.FinalizeInput
}

func (s *stubCheckoutService) Finalize(ctx context.Context, userID uuid.UUID, input checkoutsvc.FinalizeInput) (*ordersvc.OrderDTO, error) {
	s.gotUserID = userID
	s.gotInput = input
	return s.order, s.err
}

const checkoutBody = `{
	"address": {
		"line1": "Av. Siempre Viva 742",
		"city": "Buenos Aires",
		"state": "BA",
		"postal_code": "1406"
	},
	"payment_ref": "pay_abc123"
}`

func TestCheckoutSuccess(t *testing.T) {
	userID := uuid.New()
	order := &ordersvc.OrderDTO{
		ID:     uuid.New(),
		UserID: userID,
		Total:  decimal.RequireFromString("413.00"),
	}
	stub := &stubCheckoutService{order: order}
	handler := Checkout(stub, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), userID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if stub.gotUserID != userID {
		t.Fatalf("expected user %s got %s", userID, stub.gotUserID)
	}
	if stub.gotInput.PaymentRef != "pay_abc123" {
		t.Fatalf("unexpected payment ref %q", stub.gotInput.PaymentRef)
	}

	var envelope struct {
		Data ordersvc.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
}

func TestCheckoutRejectsMissingPaymentRef(t *testing.T) {
	stub := &stubCheckoutService{}
	handler := Checkout(stub, nil)

	body := `{"address":{"line1":"a","city":"b","state":"c","postal_code":"d"}}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	stub := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	handler := Checkout(stub, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestCheckoutAlreadyCommitted(t *testing.T) {
	existing := uuid.NewString()
	stub := &stubCheckoutService{err: pkgerrors.AlreadyCommitted(existing)}
	handler := Checkout(stub, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Details["order_id"] != existing {
		t.Fatalf("unexpected details: %+v", envelope.Error.Details)
	}
}

func TestCheckoutMissingUserContext(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
