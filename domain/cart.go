package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is a raw cart entry as stored or as supplied by a guest client.
// Exactly one of InventoryID or PackID is set.
type CartLine struct {
	InventoryID int64 `json:"inventory_id,omitempty" bson:"inventory_id,omitempty"`
	PackID      int64 `json:"pack_id,omitempty" bson:"pack_id,omitempty"`
	Quantity    int   `json:"quantity" bson:"quantity"`
}

// Cart is the persisted cart of a registered user. Guests have no stored
// cart; their lines arrive with the request.
type Cart struct {
	UserID    string     `bson:"user_id"`
	Lines     []CartLine `bson:"lines"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// CartViewLine is a cart line joined with its catalog snapshot.
type CartViewLine struct {
	InventoryID int64           `json:"inventory_id,omitempty"`
	PackID      int64           `json:"pack_id,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Available   int             `json:"available"`
}

// CartView is the storage-agnostic cart representation the pricing and
// reservation logic operate on. It is built either from a stored cart or
// from guest-supplied lines; downstream code cannot tell the two apart.
type CartView struct {
	UserID string         `json:"user_id,omitempty"`
	Lines  []CartViewLine `json:"lines"`
}

// ChangedLine reports a line whose quantity was clamped against stock.
type ChangedLine struct {
	InventoryID int64  `json:"inventory_id,omitempty"`
	PackID      int64  `json:"pack_id,omitempty"`
	SKU         string `json:"sku"`
	Requested   int    `json:"requested"`
	Quantity    int    `json:"quantity"` // quantity after clamping, 0 means dropped
}
