package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionBinder maps a browser session token to the account it is logged
// in as. An unbound token is an anonymous shopper.
type SessionBinder interface {
	Bind(ctx context.Context, token string, accountID int64) error
	Resolve(ctx context.Context, token string) (int64, error)
	Unbind(ctx context.Context, token string) error
}

const sessionBindingTTL = 30 * 24 * time.Hour

// RedisSessions keeps session-to-account bindings in redis.
type RedisSessions struct {
	client *redis.Client
}

func NewRedisSessions(client *redis.Client) *RedisSessions {
	return &RedisSessions{client: client}
}

func (s *RedisSessions) Bind(ctx context.Context, token string, accountID int64) error {
	if err := s.client.Set(ctx, bindingKey(token), accountID, sessionBindingTTL).Err(); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	return nil
}

// Resolve returns the bound account id, zero when the token is anonymous.
func (s *RedisSessions) Resolve(ctx context.Context, token string) (int64, error) {
	id, err := s.client.Get(ctx, bindingKey(token)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resolve session: %w", err)
	}
	return id, nil
}

func (s *RedisSessions) Unbind(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, bindingKey(token)).Err(); err != nil {
		return fmt.Errorf("unbind session: %w", err)
	}
	return nil
}

func bindingKey(token string) string {
	return fmt.Sprintf("session_account:%s", token)
}
