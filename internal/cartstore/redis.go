package cartstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/Julien-B-py/online-shop/internal/cart"
	"github.com/redis/go-redis/v9"
)

// SessionTTL is how long an anonymous cart survives without activity.
const SessionTTL = 7 * 24 * time.Hour

// RedisStore keeps anonymous session carts in redis. Every save refreshes
// the TTL, so active shoppers never lose their cart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    SessionTTL,
	}
}

func (r *RedisStore) Load(ctx context.Context, p Principal) (cart.Cart, error) {
	data, err := r.client.Get(ctx, storeKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(), nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("%w: redis get: %v", ErrPersistence, err)
	}

	c, err := cart.Deserialize(data)
	if err != nil {
		// A snapshot that no longer decodes is treated as no cart at all.
		log.Printf("discarding undecodable cart for %s: %v", p.Key(), err)
		return cart.New(), nil
	}
	return c, nil
}

func (r *RedisStore) Save(ctx context.Context, p Principal, c cart.Cart) error {
	if err := r.client.Set(ctx, storeKey(p), c.Serialize(), r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", ErrPersistence, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, p Principal) error {
	if err := r.client.Del(ctx, storeKey(p)).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", ErrPersistence, err)
	}
	return nil
}

func storeKey(p Principal) string {
	return fmt.Sprintf("cart:%s", p.Key())
}

// CartCache is a read-through cache in front of the account cart store.
type CartCache interface {
	Get(ctx context.Context, p Principal) (cart.Cart, error)
	Set(ctx context.Context, p Principal, c cart.Cart) error
	Delete(ctx context.Context, p Principal) error
}

var ErrCacheMiss = errors.New("cache miss")

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, p Principal) (cart.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{}, ErrCacheMiss
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	c, err := cart.Deserialize(data)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("unmarshal cached cart failed: %w", err)
	}
	return c, nil
}

func (r *RedisCache) Set(ctx context.Context, p Principal, c cart.Cart) error {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, cacheKey(p), c.Serialize(), r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, p Principal) error {
	if err := r.client.Del(ctx, cacheKey(p)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(p Principal) string {
	return fmt.Sprintf("cartcache:%s", p.Key())
}
