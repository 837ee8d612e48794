package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	ErrDuplicateSession       = errors.New("checkout session already exists")
)

// CheckoutSession tracks one checkout attempt across the payment provider
// round trips. The cart snapshot and checkout data are frozen at initiation
// so a later capture call prices nothing again.
type CheckoutSession struct {
	ID              uuid.UUID
	UserID          string
	IdempotencyKey  string
	CartSnapshot    json.RawMessage
	CheckoutData    json.RawMessage
	Status          domain.CheckoutStatus
	ProviderOrderID string
	TransactionID   string
	OrderID         *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	query := `INSERT INTO orders (id, user_id, email, shipping_address, items, subtotal, vat, discount,
	                              total_amount, payment_provider, payment_transaction_id, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		o.ID,
		nullableString(o.UserID),
		o.Email,
		addressJSON,
		itemsJSON,
		o.Subtotal,
		o.VAT,
		o.Discount,
		o.TotalAmount,
		o.PaymentProvider,
		o.PaymentTransactionID,
		o.Status)
	if insertErr != nil {
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

// SetSupplierOrder records the supplier's order id and moves the order to
// its terminal placed state.
func (r *Repository) SetSupplierOrder(ctx context.Context, id uuid.UUID, supplierOrderID string) error {
	query := `UPDATE orders SET supplier_order_id = $2, status = $3, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, supplierOrderID, domain.OrderStatusPlaced)
	if err != nil {
		return fmt.Errorf("set supplier order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set supplier order rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteOrder removes the order row entirely. This is the compensation for
// a supplier placement failure: money is captured but no supplier order
// exists, so the row must not survive as a half-order.
func (r *Repository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT id, COALESCE(user_id, ''), email, shipping_address, items, subtotal, vat, discount,
	                 total_amount, payment_provider, payment_transaction_id, COALESCE(supplier_order_id, ''),
	                 status, created_at, updated_at
	          FROM orders WHERE id = $1`

	return r.scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT id, COALESCE(user_id, ''), email, shipping_address, items, subtotal, vat, discount,
	                 total_amount, payment_provider, payment_transaction_id, COALESCE(supplier_order_id, ''),
	                 status, created_at, updated_at
	          FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

// CountCompletedOrders backs the first-purchase discount check.
func (r *Repository) CountCompletedOrders(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM orders WHERE user_id = $1 AND status = $2`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, domain.OrderStatusPlaced).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed orders: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON, addressJSON []byte

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Email,
		&addressJSON,
		&itemsJSON,
		&order.Subtotal,
		&order.VAT,
		&order.Discount,
		&order.TotalAmount,
		&order.PaymentProvider,
		&order.PaymentTransactionID,
		&order.SupplierOrderID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	return &order, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
