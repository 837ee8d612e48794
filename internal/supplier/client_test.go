package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/config"
)

func testOrder() *PurchaseOrder {
	return &PurchaseOrder{
		InternalReference: "order-uuid-1",
		Email:             "buyer@example.com",
		ShippingAddress:   domain.Address{Line1: "Main St 1", City: "Madrid", Country: "ES"},
		Products: []ProductRef{
			{SKU: "X", Quantity: 2},
			{SKU: "Y", Quantity: 1},
		},
	}
}

func TestPlaceOrder_TagsInternalReference(t *testing.T) {
	var got PurchaseOrder
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer sup-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"orderId":"SUP-42"}`))
	}))
	defer server.Close()

	c := NewClient(config.Supplier{APIURL: server.URL, Token: "sup-token"}, server.Client())

	id, err := c.PlaceOrder(context.Background(), testOrder())

	require.NoError(t, err)
	assert.Equal(t, "SUP-42", id)
	assert.Equal(t, "order-uuid-1", got.InternalReference)
	require.Len(t, got.Products, 2)
	assert.Equal(t, 2, got.Products[0].Quantity)
}

func TestPlaceOrder_RejectionIsSupplierOrderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"sku X discontinued"}`))
	}))
	defer server.Close()

	c := NewClient(config.Supplier{APIURL: server.URL}, server.Client())

	_, err := c.PlaceOrder(context.Background(), testOrder())

	var supErr *domain.SupplierOrderError
	require.True(t, errors.As(err, &supErr))
	assert.Contains(t, supErr.Message, "sku X discontinued")
}

func TestPlaceOrder_NetworkFailureIsSupplierOrderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	c := NewClient(config.Supplier{APIURL: server.URL}, http.DefaultClient)

	_, err := c.PlaceOrder(context.Background(), testOrder())

	var supErr *domain.SupplierOrderError
	assert.True(t, errors.As(err, &supErr))
}

func TestQueryStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/query", r.URL.Path)
		_, _ = w.Write([]byte(`{"stock":{"X":12,"Y":0}}`))
	}))
	defer server.Close()

	c := NewClient(config.Supplier{APIURL: server.URL}, server.Client())

	stock, err := c.QueryStock(context.Background(), []string{"X", "Y"})

	require.NoError(t, err)
	assert.Equal(t, 12, stock["X"])
	assert.Equal(t, 0, stock["Y"])
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(config.Supplier{APIURL: server.URL}, server.Client())

	for i := 0; i < 6; i++ {
		_, _ = c.PlaceOrder(context.Background(), testOrder())
	}

	_, err := c.PlaceOrder(context.Background(), testOrder())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
