package domain

import "github.com/shopspring/decimal"

// Provider identifies the active payment processor. Exactly one is
// configured per deployment.
type Provider string

const (
	ProviderBraintree Provider = "braintree"
	ProviderPayPal    Provider = "paypal"
)

// PaymentResult is the uniform outcome of a captured transaction,
// regardless of which provider produced it. Immutable once returned.
type PaymentResult struct {
	ExternalTransactionID string          `json:"external_transaction_id"`
	Provider              Provider        `json:"provider"`
	CapturedAmount        decimal.Decimal `json:"captured_amount"`
}
