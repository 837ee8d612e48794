package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid request")
	ErrEmptyCart  = errors.New("cart is empty, nothing to checkout")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal server error")
)

// PaymentProviderError means the gateway rejected the transaction. The
// provider's message is kept verbatim for logs and operator mail; it must
// never be echoed to the customer.
type PaymentProviderError struct {
	Provider Provider
	Message  string
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment provider %s rejected transaction: %s", e.Provider, e.Message)
}

// SupplierOrderError means the supplier rejected or failed an order-create
// call. It always happens after payment capture, so the caller owns the
// compensation.
type SupplierOrderError struct {
	Message string
	Err     error
}

func (e *SupplierOrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("supplier order failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("supplier order failed: %s", e.Message)
}

func (e *SupplierOrderError) Unwrap() error {
	return e.Err
}
