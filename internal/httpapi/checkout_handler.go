package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/checkout"
)

type CheckoutService interface {
	Start(ctx context.Context, req *checkout.Request) (*checkout.Result, error)
	Capture(ctx context.Context, sessionID uuid.UUID) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkouts CheckoutService
	timeout   time.Duration
}

func NewCheckoutHandler(checkouts CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		timeout:   timeout,
	}
}

type CheckoutRequestDTO struct {
	Lines              []domain.CartLine `json:"lines,omitempty"` // guest carts only
	Email              string            `json:"email"`
	ShippingAddress    domain.Address    `json:"shipping_address"`
	BillingAddress     domain.Address    `json:"billing_address"`
	PaymentMethodNonce string            `json:"payment_method_nonce,omitempty"`
	IdempotencyKey     string            `json:"idempotency_key,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}
	if userID != "" && len(req.Lines) > 0 {
		respondError(w, http.StatusBadRequest, "invalid_request",
			"registered users check out their stored cart, lines are not accepted")
		return
	}
	if userID == "" && len(req.Lines) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "lines are required for guest checkout")
		return
	}

	res, err := h.checkouts.Start(ctx, &checkout.Request{
		UserID:             userID,
		GuestLines:         req.Lines,
		Email:              req.Email,
		ShippingAddress:    req.ShippingAddress,
		BillingAddress:     req.BillingAddress,
		PaymentMethodNonce: req.PaymentMethodNonce,
		IdempotencyKey:     req.IdempotencyKey,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// POST /api/v1/checkout/{sessionID}/capture
func (h *CheckoutHandler) CaptureCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "sessionID must be a UUID")
		return
	}

	res, err := h.checkouts.Capture(ctx, sessionID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}
