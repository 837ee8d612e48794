package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

// OrderCounter tells the engine whether a purchaser already completed an
// order. Backed by the order repository in production.
type OrderCounter interface {
	CountCompletedOrders(ctx context.Context, userID string) (int, error)
}

// Engine computes the monetary breakdown of a cart. Prices in the catalog
// are VAT-inclusive; the engine extracts the embedded tax per line.
//
// Rounding happens with decimal half-away-from-zero at every aggregation
// step, never by truncation, so repeated pricing of the same cart can not
// drift by a penny.
type Engine struct {
	vatRate     decimal.Decimal // e.g. 0.21 for 21%
	discountPct decimal.Decimal // first-purchase discount, e.g. 10 for 10%
	orders      OrderCounter
}

func NewEngine(vatPercent, firstBuyDiscountPct decimal.Decimal, orders OrderCounter) *Engine {
	return &Engine{
		vatRate:     vatPercent.Div(decimal.NewFromInt(100)),
		discountPct: firstBuyDiscountPct,
		orders:      orders,
	}
}

// Price returns the breakdown for the given cart view. userID may be empty
// for guests; guests never receive the first-purchase discount.
//
// Lines with quantity 0 are dropped before pricing. If nothing survives,
// domain.ErrEmptyCart is returned and no amount is computed.
func (e *Engine) Price(ctx context.Context, cart *domain.CartView, userID string) (*domain.PriceBreakdown, error) {
	breakdown := &domain.PriceBreakdown{
		Subtotal: decimal.Zero,
		VAT:      decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}

	for _, line := range cart.Lines {
		if line.Quantity <= 0 {
			continue
		}

		qty := decimal.NewFromInt(int64(line.Quantity))

		// VAT portion embedded in the tax-inclusive unit price.
		unitVAT := line.UnitPrice.Sub(line.UnitPrice.Div(decimal.NewFromInt(1).Add(e.vatRate))).Round(2)
		unitNet := line.UnitPrice.Sub(unitVAT)

		lineVAT := unitVAT.Mul(qty).Round(2)
		lineSubtotal := unitNet.Mul(qty).Round(2)
		lineTotal := line.UnitPrice.Mul(qty).Round(2)

		breakdown.Lines = append(breakdown.Lines, domain.LineAmounts{
			InventoryID: line.InventoryID,
			PackID:      line.PackID,
			SKU:         line.SKU,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			UnitVAT:     unitVAT,
			Subtotal:    lineSubtotal,
			VAT:         lineVAT,
			Total:       lineTotal,
		})

		breakdown.Subtotal = breakdown.Subtotal.Add(lineSubtotal).Round(2)
		breakdown.VAT = breakdown.VAT.Add(lineVAT).Round(2)
		breakdown.Total = breakdown.Total.Add(lineTotal).Round(2)
	}

	if len(breakdown.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	if userID != "" {
		count, err := e.orders.CountCompletedOrders(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count completed orders: %w", err)
		}
		if count == 0 {
			breakdown.Discount = e.discountPct.Div(decimal.NewFromInt(100)).Mul(breakdown.Total).Round(2)
			breakdown.Total = breakdown.Total.Sub(breakdown.Discount)
		}
	}

	return breakdown, nil
}
