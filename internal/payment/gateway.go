package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
)

type Customer struct {
	Email    string
	Billing  domain.Address
	Shipping domain.Address
}

// TransactionRequest carries everything a provider needs to take payment
// for one checkout attempt. Amounts come from the pricing engine and are
// never recomputed here.
type TransactionRequest struct {
	Reference          string // internal checkout session id
	Currency           string
	Breakdown          *domain.PriceBreakdown
	Customer           Customer
	PaymentMethodNonce string // braintree client token exchange result
}

// Transaction is the outcome of CreateTransaction. Braintree captures in
// the same call, so Captured is set immediately. PayPal returns a provider
// order id plus an approval URL and captures later.
type Transaction struct {
	ProviderOrderID string
	ApprovalURL     string
	Captured        *domain.PaymentResult
}

// Gateway is the per-provider strategy. Exactly one implementation is
// active per deployment, chosen by configuration at construction time.
type Gateway interface {
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error)
	CaptureTransaction(ctx context.Context, providerOrderID string) (*domain.PaymentResult, error)
}

// NewGateway selects the provider implementation from configuration.
func NewGateway(cfg *config.Config, client *http.Client) (Gateway, error) {
	switch cfg.PaymentProvider {
	case domain.ProviderBraintree:
		return NewBraintreeGateway(cfg.Braintree, cfg.Currency, client), nil
	case domain.ProviderPayPal:
		return NewPayPalGateway(cfg.PayPal, cfg.Currency, client), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}
