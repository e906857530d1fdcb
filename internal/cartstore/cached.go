package cartstore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Julien-B-py/online-shop/internal/cart"
	"golang.org/x/sync/singleflight"
)

// CachedStore layers a CartCache over a slower backing store. Reads go
// through singleflight so a burst of requests for the same principal hits
// the backing store once.
type CachedStore struct {
	store Store
	cache CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCachedStore(store Store, cache CartCache) *CachedStore {
	return &CachedStore{
		store: store,
		cache: cache,
	}
}

func (s *CachedStore) Load(ctx context.Context, p Principal) (cart.Cart, error) {
	v, err, _ := s.sfg.Do(p.Key(), func() (interface{}, error) {
		c, err := s.cache.Get(ctx, p)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		c, err = s.store.Load(ctx, p)
		if err != nil {
			return cart.Cart{}, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, p, c); err != nil {
				log.Printf("cache set error: %v", err)
			}
		}()

		return c, nil
	})
	if err != nil {
		return cart.Cart{}, err
	}
	return v.(cart.Cart), nil
}

func (s *CachedStore) Save(ctx context.Context, p Principal, c cart.Cart) error {
	if err := s.store.Save(ctx, p, c); err != nil {
		return err
	}
	s.invalidate(p)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, p Principal) error {
	if err := s.store.Delete(ctx, p); err != nil {
		return err
	}
	s.invalidate(p)
	return nil
}

func (s *CachedStore) invalidate(p Principal) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, p); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
