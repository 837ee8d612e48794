package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
)

// BraintreeGateway takes payment in a single sale call with
// submit_for_settlement, so there is no separate capture phase.
type BraintreeGateway struct {
	cfg      config.Braintree
	currency string
	client   *http.Client
}

func NewBraintreeGateway(cfg config.Braintree, currency string, client *http.Client) *BraintreeGateway {
	return &BraintreeGateway{cfg: cfg, currency: currency, client: client}
}

type braintreeAddress struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	StreetAddress   string `json:"street_address"`
	ExtendedAddress string `json:"extended_address,omitempty"`
	PostalCode      string `json:"postal_code"`
	Locality        string `json:"locality"`
	CountryName     string `json:"country_name"`
}

type braintreeSaleRequest struct {
	Transaction struct {
		Amount             string `json:"amount"`
		OrderID            string `json:"order_id"`
		PaymentMethodNonce string `json:"payment_method_nonce"`
		Options            struct {
			SubmitForSettlement bool `json:"submit_for_settlement"`
		} `json:"options"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Billing  braintreeAddress `json:"billing"`
		Shipping braintreeAddress `json:"shipping"`
	} `json:"transaction"`
}

type braintreeSaleResponse struct {
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount string `json:"amount"`
	} `json:"transaction"`
	Message string `json:"message"`
}

func (g *BraintreeGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error) {
	var body braintreeSaleRequest
	body.Transaction.Amount = req.Breakdown.Total.StringFixed(2)
	body.Transaction.OrderID = req.Reference
	body.Transaction.PaymentMethodNonce = req.PaymentMethodNonce
	body.Transaction.Options.SubmitForSettlement = true
	body.Transaction.Customer.Email = req.Customer.Email
	body.Transaction.Billing = toBraintreeAddress(req.Customer.Billing)
	body.Transaction.Shipping = toBraintreeAddress(req.Customer.Shipping)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal braintree sale: %w", err)
	}

	url := fmt.Sprintf("%s/merchants/%s/transactions", g.cfg.APIURL, g.cfg.MerchantID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build braintree request: %w", err)
	}
	httpReq.SetBasicAuth(g.cfg.PublicKey, g.cfg.PrivateKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: braintree request failed: %v", domain.ErrInternal, err)
	}
	defer resp.Body.Close()

	var sale braintreeSaleResponse
	if err := json.NewDecoder(resp.Body).Decode(&sale); err != nil {
		return nil, fmt.Errorf("%w: decode braintree response: %v", domain.ErrInternal, err)
	}

	// Provider rejection carries its message verbatim; no retry, a blind
	// retry of a sale is not idempotent-safe.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &domain.PaymentProviderError{
			Provider: domain.ProviderBraintree,
			Message:  sale.Message,
		}
	}
	if sale.Transaction.ID == "" {
		return nil, &domain.PaymentProviderError{
			Provider: domain.ProviderBraintree,
			Message:  sale.Message,
		}
	}

	return &Transaction{
		ProviderOrderID: sale.Transaction.ID,
		Captured: &domain.PaymentResult{
			ExternalTransactionID: sale.Transaction.ID,
			Provider:              domain.ProviderBraintree,
			CapturedAmount:        req.Breakdown.Total,
		},
	}, nil
}

// CaptureTransaction is not part of the braintree flow; the sale call above
// already settles.
func (g *BraintreeGateway) CaptureTransaction(_ context.Context, providerOrderID string) (*domain.PaymentResult, error) {
	return nil, fmt.Errorf("%w: braintree transaction %s is captured at sale time", domain.ErrInternal, providerOrderID)
}

func toBraintreeAddress(a domain.Address) braintreeAddress {
	return braintreeAddress{
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		StreetAddress:   a.Line1,
		ExtendedAddress: a.Line2,
		PostalCode:      a.PostalCode,
		Locality:        a.City,
		CountryName:     a.Country,
	}
}
