package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleDomainError maps the domain error taxonomy onto HTTP statuses.
// Provider and supplier messages go to the log verbatim; the customer gets
// a generic line.
func handleDomainError(w http.ResponseWriter, err error) {
	var provErr *domain.PaymentProviderError
	if errors.As(err, &provErr) {
		log.Printf("payment provider %s rejected transaction: %s", provErr.Provider, provErr.Message)
		respondError(w, http.StatusPaymentRequired, "payment_declined", "payment was declined")
		return
	}

	var supplierErr *domain.SupplierOrderError
	if errors.As(err, &supplierErr) {
		log.Printf("supplier order placement failed: %v", supplierErr)
		respondError(w, http.StatusBadGateway, "supplier_unavailable",
			"order could not be placed, payment will be refunded")
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart has no purchasable lines")
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrPermission):
		respondError(w, http.StatusForbidden, "permission_denied", "not allowed")
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
