package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound = errors.New("inventory item not found")
	ErrPackNotFound = errors.New("pack not found")
)

// Item is a single purchasable SKU. UnitPrice is VAT-inclusive.
// AvailableQty is kept at or above zero by the repository.
type Item struct {
	ID           int64
	SKU          string
	Name         string
	UnitPrice    decimal.Decimal
	AvailableQty int
}

// Pack is a fixed bundle of items. Its price is the sum of constituent
// prices and its availability is the minimum across constituents.
type Pack struct {
	ID    int64
	SKU   string
	Name  string
	Items []Item
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetItem(ctx context.Context, id int64) (*Item, error) {
	query := `SELECT id, sku, name, unit_price, available_qty FROM inventory_items WHERE id = $1`

	var item Item
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.SKU,
		&item.Name,
		&item.UnitPrice,
		&item.AvailableQty,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory item: %w", err)
	}
	return &item, nil
}

func (r *Repository) GetPack(ctx context.Context, id int64) (*Pack, error) {
	query := `SELECT id, sku, name FROM packs WHERE id = $1`

	var pack Pack
	err := r.db.QueryRowContext(ctx, query, id).Scan(&pack.ID, &pack.SKU, &pack.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pack: %w", err)
	}

	itemsQuery := `SELECT i.id, i.sku, i.name, i.unit_price, i.available_qty
	               FROM inventory_items i
	               JOIN pack_items pi ON pi.inventory_id = i.id
	               WHERE pi.pack_id = $1`

	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query pack items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.UnitPrice, &item.AvailableQty); err != nil {
			return nil, fmt.Errorf("scan pack item: %w", err)
		}
		pack.Items = append(pack.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(pack.Items) == 0 {
		return nil, ErrPackNotFound
	}

	return &pack, nil
}

// DecrementStock reduces available quantity, flooring at zero. No row lock
// is taken; the clamp at checkout time makes oversell unlikely but not
// impossible, and the supplier stock sync reconciles any drift.
func (r *Repository) DecrementStock(ctx context.Context, itemID int64, qty int) error {
	query := `UPDATE inventory_items
	          SET available_qty = GREATEST(available_qty - $2, 0), updated_at = NOW()
	          WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, itemID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock for item %d: %w", itemID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// SetStock overwrites available quantity, used by the supplier sync.
func (r *Repository) SetStock(ctx context.Context, sku string, qty int) error {
	query := `UPDATE inventory_items SET available_qty = $2, updated_at = NOW() WHERE sku = $1`

	res, err := r.db.ExecContext(ctx, query, sku, qty)
	if err != nil {
		return fmt.Errorf("set stock for sku %s: %w", sku, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListSKUs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sku FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return skus, nil
}
