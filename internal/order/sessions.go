package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions (id, user_id, idempotency_key, cart_snapshot, checkout_data, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		nullableString(session.UserID),
		session.IdempotencyKey,
		[]byte(session.CartSnapshot),
		[]byte(session.CheckoutData),
		session.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

// GetSessionByIdempotencyKey returns the session id and status for a key,
// or ErrIdempotencyKeyNotFound when the key has never been seen.
func (r *Repository) GetSessionByIdempotencyKey(ctx context.Context, key string) (*uuid.UUID, *domain.CheckoutStatus, error) {
	query := `SELECT id, status FROM checkout_sessions WHERE idempotency_key = $1`

	var id uuid.UUID
	var status domain.CheckoutStatus
	err := r.db.QueryRowContext(ctx, query, key).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query session by idempotency key: %w", err)
	}
	return &id, &status, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*CheckoutSession, error) {
	query := `SELECT id, COALESCE(user_id, ''), idempotency_key, cart_snapshot, checkout_data, status,
	                 COALESCE(provider_order_id, ''), COALESCE(transaction_id, ''), order_id, created_at, updated_at
	          FROM checkout_sessions WHERE id = $1`

	var session CheckoutSession
	var orderID uuid.NullUUID
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.IdempotencyKey,
		&session.CartSnapshot,
		&session.CheckoutData,
		&session.Status,
		&session.ProviderOrderID,
		&session.TransactionID,
		&orderID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	if orderID.Valid {
		session.OrderID = &orderID.UUID
	}
	return &session, nil
}

func (r *Repository) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return requireAffected(res, ErrSessionNotFound)
}

// SetSessionProviderOrder records the provider's order id while the client
// completes the external approval step.
func (r *Repository) SetSessionProviderOrder(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, providerOrderID string) error {
	query := `UPDATE checkout_sessions SET status = $2, provider_order_id = $3, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, providerOrderID)
	if err != nil {
		return fmt.Errorf("set session provider order: %w", err)
	}
	return requireAffected(res, ErrSessionNotFound)
}

// SetSessionPayment records the captured transaction id.
func (r *Repository) SetSessionPayment(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, transactionID string) error {
	query := `UPDATE checkout_sessions SET status = $2, transaction_id = $3, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, transactionID)
	if err != nil {
		return fmt.Errorf("set session payment: %w", err)
	}
	return requireAffected(res, ErrSessionNotFound)
}

// CompleteSession links the final order and moves the session to a
// terminal status.
func (r *Repository) CompleteSession(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, orderID *uuid.UUID) error {
	query := `UPDATE checkout_sessions SET status = $2, order_id = $3, updated_at = NOW() WHERE id = $1`

	var oid interface{}
	if orderID != nil {
		oid = *orderID
	}
	res, err := r.db.ExecContext(ctx, query, id, status, oid)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return requireAffected(res, ErrSessionNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
