package inventory

import (
	"context"
	"log"
	"time"
)

// StockSource provides external stock levels by SKU. Implemented by the
// supplier client.
type StockSource interface {
	QueryStock(ctx context.Context, skus []string) (map[string]int, error)
}

// StockLister and StockWriter are the repository methods the sync needs.
type SyncStore interface {
	ListSKUs(ctx context.Context) ([]string, error)
	SetStock(ctx context.Context, sku string, qty int) error
}

// Syncer periodically overwrites local stock counters with the supplier's
// numbers. This is also what reconciles any oversell left behind by the
// unlocked decrement at purchase time.
type Syncer struct {
	store    SyncStore
	source   StockSource
	interval time.Duration
}

func NewSyncer(store SyncStore, source StockSource, interval time.Duration) *Syncer {
	return &Syncer{store: store, source: source, interval: interval}
}

func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.syncOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Syncer) syncOnce(ctx context.Context) {
	skus, err := s.store.ListSKUs(ctx)
	if err != nil {
		log.Printf("stock sync: failed to list skus: %v", err)
		return
	}
	if len(skus) == 0 {
		return
	}

	stock, err := s.source.QueryStock(ctx, skus)
	if err != nil {
		log.Printf("stock sync: supplier query failed: %v", err)
		return
	}

	for sku, qty := range stock {
		if err := s.store.SetStock(ctx, sku, qty); err != nil {
			log.Printf("stock sync: failed to set stock for %s: %v", sku, err)
		}
	}
}
