package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
)

// ProductRef is one purchased SKU in a supplier purchase order.
type ProductRef struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// PurchaseOrder is the order-create payload. InternalReference carries our
// order id so the supplier can deduplicate a retried submission.
type PurchaseOrder struct {
	InternalReference string         `json:"internalReference"`
	Email             string         `json:"email"`
	ShippingAddress   domain.Address `json:"shippingAddress"`
	Products          []ProductRef   `json:"products"`
}

type orderCreateResponse struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

type stockQueryResponse struct {
	Stock map[string]int `json:"stock"`
}

// Client talks to the dropshipping supplier's REST API. Calls run through a
// circuit breaker so a dead supplier fails fast instead of holding checkout
// requests open.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg config.Supplier, client *http.Client) *Client {
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name: "supplier-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Client{
		baseURL: cfg.APIURL,
		token:   cfg.Token,
		client:  client,
		breaker: breaker,
	}
}

// PlaceOrder submits a purchase order and returns the supplier's order id.
func (c *Client) PlaceOrder(ctx context.Context, po *PurchaseOrder) (string, error) {
	payload, err := json.Marshal(po)
	if err != nil {
		return "", fmt.Errorf("marshal purchase order: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return "", &domain.SupplierOrderError{Message: "order-create call failed", Err: err}
	}

	var created orderCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", &domain.SupplierOrderError{Message: "decode order-create response", Err: err}
	}
	if created.OrderID == "" {
		return "", &domain.SupplierOrderError{Message: fmt.Sprintf("supplier rejected order: %s", created.Message)}
	}

	return created.OrderID, nil
}

// QueryStock returns available quantities for the given SKUs.
func (c *Client) QueryStock(ctx context.Context, skus []string) (map[string]int, error) {
	payload, err := json.Marshal(map[string][]string{"skus": skus})
	if err != nil {
		return nil, fmt.Errorf("marshal stock query: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/stock/query", payload)
	if err != nil {
		return nil, fmt.Errorf("stock query failed: %w", err)
	}

	var stock stockQueryResponse
	if err := json.Unmarshal(body, &stock); err != nil {
		return nil, fmt.Errorf("decode stock query response: %w", err)
	}
	return stock.Stock, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build supplier request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("supplier request failed: %w", err)
		}
		defer resp.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return nil, fmt.Errorf("read supplier response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("supplier returned %d: %s", resp.StatusCode, buf.String())
		}
		return buf.Bytes(), nil
	})
}
