package domain

import "github.com/shopspring/decimal"

// LineAmounts is the monetary breakdown of a single cart line, already
// weighted by quantity. All amounts are rounded to 2 decimal places.
type LineAmounts struct {
	InventoryID int64           `json:"inventory_id,omitempty"`
	PackID      int64           `json:"pack_id,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitVAT     decimal.Decimal `json:"unit_vat"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VAT         decimal.Decimal `json:"vat"`
	Total       decimal.Decimal `json:"total"`
}

// PriceBreakdown is derived fresh on every pricing pass and never cached.
// Invariant: Total = Subtotal - Discount + VAT.
type PriceBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Lines    []LineAmounts   `json:"lines"`
}
