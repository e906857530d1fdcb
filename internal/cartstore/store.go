// Package cartstore loads and persists cart state for a principal. The cart
// engine itself never touches storage; handlers load a snapshot, apply one
// operation and save the successor cart through a Store.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Julien-B-py/online-shop/internal/cart"
)

// ErrPersistence wraps any storage failure surfaced to the host. The host
// decides retry/abort policy.
var ErrPersistence = errors.New("cart store: persistence failure")

// Principal identifies whose cart is being operated on: an anonymous
// session token, optionally bound to an authenticated account.
type Principal struct {
	Session string
	Account int64
}

func (p Principal) Authenticated() bool {
	return p.Account > 0
}

// Key is the storage key for this principal. Authenticated principals key
// by account so the cart follows the user across sessions.
func (p Principal) Key() string {
	if p.Authenticated() {
		return fmt.Sprintf("account:%d", p.Account)
	}
	return fmt.Sprintf("session:%s", p.Session)
}

// ParsePrincipal reverses Key. Checkout sessions persist the principal key
// and need the principal back to clear the cart on payment confirmation.
func ParsePrincipal(key string) (Principal, error) {
	kind, rest, ok := strings.Cut(key, ":")
	if !ok || rest == "" {
		return Principal{}, fmt.Errorf("bad principal key %q", key)
	}
	switch kind {
	case "account":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Principal{}, fmt.Errorf("bad principal key %q", key)
		}
		return Principal{Account: id}, nil
	case "session":
		return Principal{Session: rest}, nil
	default:
		return Principal{}, fmt.Errorf("bad principal key %q", key)
	}
}

// Store is the session/account adapter the cart engine's host depends on.
// Load returns an empty cart when no cart exists or the stored bytes fail
// to decode; decode failures never reach the user-visible flow.
type Store interface {
	Load(ctx context.Context, p Principal) (cart.Cart, error)
	Save(ctx context.Context, p Principal, c cart.Cart) error
	Delete(ctx context.Context, p Principal) error
}

// Split routes anonymous principals to one store and authenticated ones to
// another (transient session store vs account-backed store).
type Split struct {
	Anon Store
	Auth Store
}

func (s *Split) pick(p Principal) Store {
	if p.Authenticated() {
		return s.Auth
	}
	return s.Anon
}

func (s *Split) Load(ctx context.Context, p Principal) (cart.Cart, error) {
	return s.pick(p).Load(ctx, p)
}

func (s *Split) Save(ctx context.Context, p Principal, c cart.Cart) error {
	return s.pick(p).Save(ctx, p, c)
}

func (s *Split) Delete(ctx context.Context, p Principal) error {
	return s.pick(p).Delete(ctx, p)
}
