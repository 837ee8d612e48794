package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/checkout"
)

type checkoutServiceMock struct {
	result     *checkout.Result
	err        error
	startReq   *checkout.Request
	capturedID uuid.UUID
}

func (m *checkoutServiceMock) Start(_ context.Context, req *checkout.Request) (*checkout.Result, error) {
	m.startReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *checkoutServiceMock) Capture(_ context.Context, sessionID uuid.UUID) (*checkout.Result, error) {
	m.capturedID = sessionID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func checkoutBody(t *testing.T, dto CheckoutRequestDTO) []byte {
	t.Helper()
	body, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return body
}

func TestStartCheckout_RegisteredUser(t *testing.T) {
	orderID := uuid.New()
	svc := &checkoutServiceMock{result: &checkout.Result{
		SessionID: uuid.New(),
		Status:    domain.CheckoutStatusCompleted,
		OrderID:   &orderID,
	}}
	handler := NewCheckoutHandler(svc, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{Email: "buyer@example.com"})
	recorder := httptest.NewRecorder()
	handler.StartCheckout(recorder, authedRequest("POST", "/", body))

	if recorder.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, recorder.Code)
	}
	if svc.startReq.UserID != "user-1" {
		t.Errorf("Expected user id forwarded, got %q", svc.startReq.UserID)
	}
}

func TestStartCheckout_RegisteredUserRejectsBodyLines(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{
		Email: "buyer@example.com",
		Lines: []domain.CartLine{{InventoryID: 1, Quantity: 1}},
	})
	recorder := httptest.NewRecorder()
	handler.StartCheckout(recorder, authedRequest("POST", "/", body))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestStartCheckout_GuestNeedsLines(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{Email: "guest@example.com"})
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/", bytes.NewReader(body))

	handler.StartCheckout(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestStartCheckout_MissingEmail(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{})
	recorder := httptest.NewRecorder()
	handler.StartCheckout(recorder, authedRequest("POST", "/", body))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestStartCheckout_PaymentDeclinedMapsTo402(t *testing.T) {
	svc := &checkoutServiceMock{err: &domain.PaymentProviderError{
		Provider: domain.ProviderBraintree,
		Message:  "Credit card declined",
	}}
	handler := NewCheckoutHandler(svc, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{Email: "buyer@example.com"})
	recorder := httptest.NewRecorder()
	handler.StartCheckout(recorder, authedRequest("POST", "/", body))

	if recorder.Code != http.StatusPaymentRequired {
		t.Errorf("Expected status code %d, got %d", http.StatusPaymentRequired, recorder.Code)
	}

	// provider wording stays out of customer responses
	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Error != "payment was declined" {
		t.Errorf("Expected generic decline message, got %q", response.Error)
	}
}

func TestStartCheckout_SupplierFailureMapsTo502(t *testing.T) {
	svc := &checkoutServiceMock{err: &domain.SupplierOrderError{Message: "supplier rejected order"}}
	handler := NewCheckoutHandler(svc, 5*time.Second)

	body := checkoutBody(t, CheckoutRequestDTO{Email: "buyer@example.com"})
	recorder := httptest.NewRecorder()
	handler.StartCheckout(recorder, authedRequest("POST", "/", body))

	if recorder.Code != http.StatusBadGateway {
		t.Errorf("Expected status code %d, got %d", http.StatusBadGateway, recorder.Code)
	}
}

func TestCaptureCheckout_Success(t *testing.T) {
	sessionID := uuid.New()
	svc := &checkoutServiceMock{result: &checkout.Result{
		SessionID: sessionID,
		Status:    domain.CheckoutStatusCompleted,
	}}
	handler := NewCheckoutHandler(svc, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authedRequest("POST", "/"+sessionID.String()+"/capture", nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", sessionID.String())
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))

	handler.CaptureCheckout(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if svc.capturedID != sessionID {
		t.Errorf("Expected session id %s captured, got %s", sessionID, svc.capturedID)
	}
}

func TestCaptureCheckout_InvalidSessionID(t *testing.T) {
	handler := NewCheckoutHandler(&checkoutServiceMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := authedRequest("POST", "/not-a-uuid/capture", nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("sessionID", "not-a-uuid")
	request = request.WithContext(context.WithValue(request.Context(), chi.RouteCtxKey, rctx))

	handler.CaptureCheckout(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}
