package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
)

type Service struct {
	repo  Repository
	cache Cache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			// every registered user has a cart; an absent document is an
			// empty one
			return &domain.Cart{
				UserID:    userID,
				Lines:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *Service) AddLine(ctx context.Context, userID string, line domain.CartLine) error {
	if err := s.repo.AddLine(ctx, userID, line); err != nil {
		log.Printf("repo add line error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID string, line domain.CartLine) error {
	if err := s.repo.UpdateLineQuantity(ctx, userID, line); err != nil {
		log.Printf("repo update line quantity error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) RemoveLine(ctx context.Context, userID string, inventoryID, packID int64) error {
	if err := s.repo.RemoveLine(ctx, userID, inventoryID, packID); err != nil {
		log.Printf("repo remove line error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		log.Printf("repo delete cart error: %v", err)
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// PersistClampedQuantities writes quantities that were reduced against
// stock back into the stored cart. Guest carts have no storage target, so
// the caller only does this for registered users.
func (s *Service) PersistClampedQuantities(ctx context.Context, userID string, changed []domain.ChangedLine) error {
	for _, ch := range changed {
		line := domain.CartLine{
			InventoryID: ch.InventoryID,
			PackID:      ch.PackID,
			Quantity:    ch.Quantity,
		}
		var err error
		if ch.Quantity == 0 {
			err = s.repo.RemoveLine(ctx, userID, ch.InventoryID, ch.PackID)
		} else {
			err = s.repo.UpdateLineQuantity(ctx, userID, line)
		}
		if err != nil && !errors.Is(err, ErrLineNotFound) && !errors.Is(err, ErrCartNotFound) {
			return err
		}
	}

	s.invalidateCache(userID)
	return nil
}

func (s *Service) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
