package cart

import (
	"context"
	"errors"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

type Cache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
