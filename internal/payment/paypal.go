package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
)

// PayPalGateway runs the two-phase REST flow: create an order carrying the
// full breakdown, let the client approve it, then capture by the provider's
// order id. The order payload must add up to the locally computed total
// exactly or PayPal rejects it.
type PayPalGateway struct {
	cfg      config.PayPal
	currency string
	client   *http.Client
}

func NewPayPalGateway(cfg config.PayPal, currency string, client *http.Client) *PayPalGateway {
	return &PayPalGateway{cfg: cfg, currency: currency, client: client}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalItem struct {
	Name       string       `json:"name"`
	SKU        string       `json:"sku"`
	Quantity   string       `json:"quantity"`
	UnitAmount paypalAmount `json:"unit_amount"`
	Tax        paypalAmount `json:"tax"`
}

type paypalPurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	Amount      struct {
		paypalAmount
		Breakdown struct {
			ItemTotal paypalAmount `json:"item_total"`
			TaxTotal  paypalAmount `json:"tax_total"`
			Discount  paypalAmount `json:"discount"`
		} `json:"breakdown"`
	} `json:"amount"`
	Items []paypalItem `json:"items"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrderResponse struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Links   []paypalLink `json:"links"`
	Message string       `json:"message"`
}

type paypalCaptureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Message string `json:"message"`
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// getAccessToken fetches a client-credentials token. Tokens live for about
// half an hour but are re-fetched per call; the provider handles reuse.
func (g *PayPalGateway) getAccessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.APIURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: paypal token request failed: %v", domain.ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: paypal token request returned %d", domain.ErrInternal, resp.StatusCode)
	}

	var token paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode paypal token: %v", domain.ErrInternal, err)
	}
	return token.AccessToken, nil
}

func (g *PayPalGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Transaction, error) {
	token, err := g.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	unit := paypalPurchaseUnit{ReferenceID: req.Reference}
	unit.Amount.CurrencyCode = g.currency
	unit.Amount.Value = req.Breakdown.Total.StringFixed(2)
	unit.Amount.Breakdown.ItemTotal = g.amount(req.Breakdown.Subtotal)
	unit.Amount.Breakdown.TaxTotal = g.amount(req.Breakdown.VAT)
	unit.Amount.Breakdown.Discount = g.amount(req.Breakdown.Discount)

	for _, line := range req.Breakdown.Lines {
		unitNet := line.UnitPrice.Sub(line.UnitVAT)
		unit.Items = append(unit.Items, paypalItem{
			Name:       line.Name,
			SKU:        line.SKU,
			Quantity:   fmt.Sprintf("%d", line.Quantity),
			UnitAmount: g.amount(unitNet),
			Tax:        g.amount(line.UnitVAT),
		})
	}

	payload, err := json.Marshal(paypalOrderRequest{
		Intent:        "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{unit},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal paypal order: %w", err)
	}

	var order paypalOrderResponse
	status, err := g.post(ctx, token, "/v2/checkout/orders", payload, &order)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, &domain.PaymentProviderError{
			Provider: domain.ProviderPayPal,
			Message:  order.Message,
		}
	}

	tx := &Transaction{ProviderOrderID: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			tx.ApprovalURL = link.Href
		}
	}
	return tx, nil
}

// CaptureTransaction is the second call of the paypal flow, invoked only
// after the client-side approval redirect completed.
func (g *PayPalGateway) CaptureTransaction(ctx context.Context, providerOrderID string) (*domain.PaymentResult, error) {
	token, err := g.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var capture paypalCaptureResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", providerOrderID)
	status, err := g.post(ctx, token, path, []byte("{}"), &capture)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return nil, &domain.PaymentProviderError{
			Provider: domain.ProviderPayPal,
			Message:  capture.Message,
		}
	}
	if len(capture.PurchaseUnits) == 0 || len(capture.PurchaseUnits[0].Payments.Captures) == 0 {
		return nil, fmt.Errorf("%w: paypal capture response has no captures", domain.ErrInternal)
	}

	captured := capture.PurchaseUnits[0].Payments.Captures[0]
	amount, err := decimal.NewFromString(captured.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: parse captured amount %q: %v", domain.ErrInternal, captured.Amount.Value, err)
	}

	return &domain.PaymentResult{
		ExternalTransactionID: captured.ID,
		Provider:              domain.ProviderPayPal,
		CapturedAmount:        amount,
	}, nil
}

func (g *PayPalGateway) post(ctx context.Context, token, path string, payload []byte, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build paypal request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: paypal request failed: %v", domain.ErrInternal, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode paypal response: %v", domain.ErrInternal, err)
	}
	return resp.StatusCode, nil
}

func (g *PayPalGateway) amount(v decimal.Decimal) paypalAmount {
	return paypalAmount{CurrencyCode: g.currency, Value: v.StringFixed(2)}
}
