package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

// Catalog is the subset of the repository the service needs. Split out so
// tests can fake the storage.
type Catalog interface {
	GetItem(ctx context.Context, id int64) (*Item, error)
	GetPack(ctx context.Context, id int64) (*Pack, error)
	DecrementStock(ctx context.Context, itemID int64, qty int) error
}

type Service struct {
	catalog Catalog
}

func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// Resolve joins raw cart lines with the catalog into a CartView. Lines
// referencing a missing item or pack are skipped, matching the behavior at
// display time where stale references silently disappear from the cart.
func (s *Service) Resolve(ctx context.Context, userID string, lines []domain.CartLine) (*domain.CartView, error) {
	view := &domain.CartView{UserID: userID}

	for _, line := range lines {
		if line.Quantity < 0 {
			return nil, fmt.Errorf("%w: negative quantity", domain.ErrValidation)
		}
		if line.Quantity == 0 {
			continue
		}

		switch {
		case line.InventoryID != 0:
			item, err := s.catalog.GetItem(ctx, line.InventoryID)
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			view.Lines = append(view.Lines, domain.CartViewLine{
				InventoryID: item.ID,
				SKU:         item.SKU,
				Name:        item.Name,
				UnitPrice:   item.UnitPrice,
				Quantity:    line.Quantity,
				Available:   item.AvailableQty,
			})
		case line.PackID != 0:
			pack, err := s.catalog.GetPack(ctx, line.PackID)
			if errors.Is(err, ErrPackNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			view.Lines = append(view.Lines, packViewLine(pack, line.Quantity))
		default:
			return nil, fmt.Errorf("%w: line references neither item nor pack", domain.ErrValidation)
		}
	}

	return view, nil
}

// packViewLine derives a pack's effective price (sum of constituents) and
// availability (minimum across constituents).
func packViewLine(pack *Pack, quantity int) domain.CartViewLine {
	price := decimal.Zero
	available := 0
	for i, item := range pack.Items {
		price = price.Add(item.UnitPrice)
		if i == 0 || item.AvailableQty < available {
			available = item.AvailableQty
		}
	}
	return domain.CartViewLine{
		PackID:    pack.ID,
		SKU:       pack.SKU,
		Name:      pack.Name,
		UnitPrice: price,
		Quantity:  quantity,
		Available: available,
	}
}

// CheckAndClamp reduces requested quantities to the available-stock ceiling
// and drops lines with no stock at all. The same function backs the cart
// display check and the checkout flow, so the two can never disagree.
//
// No stock lock is taken between this check and the decrement at purchase
// time; the window is a known limitation.
func (s *Service) CheckAndClamp(view *domain.CartView) (*domain.CartView, []domain.ChangedLine) {
	clamped := &domain.CartView{UserID: view.UserID}
	var changed []domain.ChangedLine

	for _, line := range view.Lines {
		if line.Quantity <= 0 {
			continue
		}
		if line.Available <= 0 {
			changed = append(changed, domain.ChangedLine{
				InventoryID: line.InventoryID,
				PackID:      line.PackID,
				SKU:         line.SKU,
				Requested:   line.Quantity,
				Quantity:    0,
			})
			continue
		}
		if line.Quantity > line.Available {
			changed = append(changed, domain.ChangedLine{
				InventoryID: line.InventoryID,
				PackID:      line.PackID,
				SKU:         line.SKU,
				Requested:   line.Quantity,
				Quantity:    line.Available,
			})
			line.Quantity = line.Available
		}
		clamped.Lines = append(clamped.Lines, line)
	}

	return clamped, changed
}

// Commit decrements stock for every purchased line, expanding packs into
// their constituent items. Runs after payment capture.
func (s *Service) Commit(ctx context.Context, view *domain.CartView) error {
	for _, line := range view.Lines {
		if line.PackID != 0 {
			pack, err := s.catalog.GetPack(ctx, line.PackID)
			if err != nil {
				return fmt.Errorf("commit pack %d: %w", line.PackID, err)
			}
			for _, item := range pack.Items {
				if err := s.catalog.DecrementStock(ctx, item.ID, line.Quantity); err != nil {
					return err
				}
			}
			continue
		}
		if err := s.catalog.DecrementStock(ctx, line.InventoryID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
