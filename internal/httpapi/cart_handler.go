package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/checkout"
)

// CartService is the stored-cart surface the handlers call.
type CartService interface {
	AddLine(ctx context.Context, userID string, line domain.CartLine) error
	UpdateQuantity(ctx context.Context, userID string, line domain.CartLine) error
	RemoveLine(ctx context.Context, userID string, inventoryID, packID int64) error
	ClearCart(ctx context.Context, userID string) error
}

// Checker resolves, clamps and prices a cart without side effects beyond
// writing clamped quantities back to storage.
type Checker interface {
	Check(ctx context.Context, userID string, guestLines []domain.CartLine) (*checkout.CheckResult, error)
}

type CartHandler struct {
	carts   CartService
	checker Checker
	timeout time.Duration
}

func NewCartHandler(carts CartService, checker Checker, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		checker: checker,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	InventoryID int64 `json:"inventory_id,omitempty"`
	PackID      int64 `json:"pack_id,omitempty"`
	Quantity    int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CheckRequestDTO struct {
	Lines []domain.CartLine `json:"lines"`
}

// GET /api/v1/cart
// Returns the stored cart checked against current stock, with any clamped
// lines reported.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	res, err := h.checker.Check(ctx, userID, nil)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if (req.InventoryID <= 0) == (req.PackID <= 0) {
		respondError(w, http.StatusBadRequest, "invalid_reference", "exactly one of inventory_id or pack_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	err := h.carts.AddLine(ctx, userID, domain.CartLine{
		InventoryID: req.InventoryID,
		PackID:      req.PackID,
		Quantity:    req.Quantity,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// PUT /api/v1/cart/items/{id}
// The id is an inventory id; pack lines use ?kind=pack.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	line, ok := lineRefFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	line.Quantity = req.Quantity

	if err := h.carts.UpdateQuantity(ctx, userID, line); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	line, ok := lineRefFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.carts.RemoveLine(ctx, userID, line.InventoryID, line.PackID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.carts.ClearCart(ctx, userID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/cart/check
// Guest preview: clamp and price client-supplied lines. Registered users
// may call it too; their stored cart wins over the body.
func (h *CartHandler) CheckCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())

	var req CheckRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if userID == "" && len(req.Lines) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "lines are required for guest checks")
		return
	}

	res, err := h.checker.Check(ctx, userID, req.Lines)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func lineRefFromRequest(w http.ResponseWriter, r *http.Request) (domain.CartLine, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return domain.CartLine{}, false
	}

	if r.URL.Query().Get("kind") == "pack" {
		return domain.CartLine{PackID: id}, true
	}
	return domain.CartLine{InventoryID: id}, true
}
