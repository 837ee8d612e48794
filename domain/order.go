package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	// OrderStatusPending is set right after payment capture, before the
	// supplier has accepted the order.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPlaced is terminal: the supplier accepted the order.
	OrderStatusPlaced OrderStatus = "PLACED"
)

// OrderItem is a line-item snapshot taken at checkout time. Prices are
// frozen here; later catalog changes do not affect placed orders.
type OrderItem struct {
	InventoryID int64           `json:"inventory_id,omitempty"`
	PackID      int64           `json:"pack_id,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VAT         decimal.Decimal `json:"vat"`
	Total       decimal.Decimal `json:"total"`
}

type Address struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

type Order struct {
	ID                   uuid.UUID       `json:"id"`
	UserID               string          `json:"user_id,omitempty"` // empty for guest orders
	Email                string          `json:"email"`
	ShippingAddress      Address         `json:"shipping_address"`
	Items                []OrderItem     `json:"items"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	VAT                  decimal.Decimal `json:"vat"`
	Discount             decimal.Decimal `json:"discount"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PaymentProvider      Provider        `json:"payment_provider"`
	PaymentTransactionID string          `json:"payment_transaction_id"`
	SupplierOrderID      string          `json:"supplier_order_id,omitempty"`
	Status               OrderStatus     `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
