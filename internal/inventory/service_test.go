package inventory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

// MockCatalog implements Catalog for testing
type MockCatalog struct {
	Items      map[int64]*Item
	Packs      map[int64]*Pack
	Decrements map[int64]int
	Err        error
}

func (m *MockCatalog) GetItem(_ context.Context, id int64) (*Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	item, ok := m.Items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (m *MockCatalog) GetPack(_ context.Context, id int64) (*Pack, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	pack, ok := m.Packs[id]
	if !ok {
		return nil, ErrPackNotFound
	}
	return pack, nil
}

func (m *MockCatalog) DecrementStock(_ context.Context, itemID int64, qty int) error {
	if m.Decrements == nil {
		m.Decrements = make(map[int64]int)
	}
	m.Decrements[itemID] += qty
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestResolve_ItemsAndPacks(t *testing.T) {
	catalog := &MockCatalog{
		Items: map[int64]*Item{
			1: {ID: 1, SKU: "A", Name: "Item A", UnitPrice: price("10.00"), AvailableQty: 5},
		},
		Packs: map[int64]*Pack{
			7: {ID: 7, SKU: "PACK-7", Name: "Bundle", Items: []Item{
				{ID: 1, SKU: "A", UnitPrice: price("10.00"), AvailableQty: 5},
				{ID: 2, SKU: "B", UnitPrice: price("2.50"), AvailableQty: 2},
			}},
		},
	}
	svc := NewService(catalog)

	view, err := svc.Resolve(context.Background(), "user-1", []domain.CartLine{
		{InventoryID: 1, Quantity: 2},
		{PackID: 7, Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "A", view.Lines[0].SKU)
	// pack price = sum of constituents, availability = min across them
	assert.True(t, price("12.50").Equal(view.Lines[1].UnitPrice), "pack price = %s", view.Lines[1].UnitPrice)
	assert.Equal(t, 2, view.Lines[1].Available)
}

func TestResolve_MissingItemSkipped(t *testing.T) {
	catalog := &MockCatalog{Items: map[int64]*Item{}}
	svc := NewService(catalog)

	view, err := svc.Resolve(context.Background(), "", []domain.CartLine{
		{InventoryID: 99, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Empty(t, view.Lines)
}

func TestResolve_NegativeQuantityRejected(t *testing.T) {
	svc := NewService(&MockCatalog{})

	_, err := svc.Resolve(context.Background(), "", []domain.CartLine{
		{InventoryID: 1, Quantity: -1},
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckAndClamp_ClampsToAvailable(t *testing.T) {
	// Stock for X is 1 while the cart asks for 2.
	svc := NewService(&MockCatalog{})
	view := &domain.CartView{Lines: []domain.CartViewLine{
		{InventoryID: 1, SKU: "X", UnitPrice: price("12.10"), Quantity: 2, Available: 1},
	}}

	clamped, changed := svc.CheckAndClamp(view)

	require.Len(t, clamped.Lines, 1)
	assert.Equal(t, 1, clamped.Lines[0].Quantity)
	require.Len(t, changed, 1)
	assert.Equal(t, "X", changed[0].SKU)
	assert.Equal(t, 2, changed[0].Requested)
	assert.Equal(t, 1, changed[0].Quantity)
}

func TestCheckAndClamp_ZeroStockDropsLine(t *testing.T) {
	svc := NewService(&MockCatalog{})
	view := &domain.CartView{Lines: []domain.CartViewLine{
		{InventoryID: 1, SKU: "X", Quantity: 3, Available: 0},
		{InventoryID: 2, SKU: "Y", Quantity: 1, Available: 4},
	}}

	clamped, changed := svc.CheckAndClamp(view)

	require.Len(t, clamped.Lines, 1)
	assert.Equal(t, "Y", clamped.Lines[0].SKU)
	require.Len(t, changed, 1)
	assert.Equal(t, 0, changed[0].Quantity)
}

func TestCheckAndClamp_NoChanges(t *testing.T) {
	svc := NewService(&MockCatalog{})
	view := &domain.CartView{Lines: []domain.CartViewLine{
		{InventoryID: 1, SKU: "X", Quantity: 2, Available: 5},
	}}

	clamped, changed := svc.CheckAndClamp(view)

	assert.Len(t, clamped.Lines, 1)
	assert.Empty(t, changed)
	assert.Equal(t, 2, clamped.Lines[0].Quantity)
}

func TestCheckAndClamp_NeverExceedsAvailable(t *testing.T) {
	svc := NewService(&MockCatalog{})
	view := &domain.CartView{Lines: []domain.CartViewLine{
		{InventoryID: 1, SKU: "A", Quantity: 100, Available: 3},
		{InventoryID: 2, SKU: "B", Quantity: 1, Available: 1},
		{InventoryID: 3, SKU: "C", Quantity: 50, Available: 0},
	}}

	clamped, _ := svc.CheckAndClamp(view)

	for _, line := range clamped.Lines {
		assert.LessOrEqual(t, line.Quantity, line.Available)
		assert.Greater(t, line.Available, 0)
	}
}

func TestCommit_DecrementsItemsAndExpandsPacks(t *testing.T) {
	catalog := &MockCatalog{
		Packs: map[int64]*Pack{
			7: {ID: 7, Items: []Item{{ID: 1}, {ID: 2}}},
		},
	}
	svc := NewService(catalog)
	view := &domain.CartView{Lines: []domain.CartViewLine{
		{InventoryID: 3, Quantity: 2},
		{PackID: 7, Quantity: 1},
	}}

	err := svc.Commit(context.Background(), view)

	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Decrements[3])
	assert.Equal(t, 1, catalog.Decrements[1])
	assert.Equal(t, 1, catalog.Decrements[2])
}
