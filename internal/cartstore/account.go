package cartstore

import (
	"context"
	"fmt"
	"log"

	"github.com/Julien-B-py/online-shop/internal/cart"
)

// SnapshotSource is the slice of the account repository this store needs:
// the serialized cart column of an account row.
type SnapshotSource interface {
	CartSnapshot(ctx context.Context, accountID int64) ([]byte, error)
	SaveCartSnapshot(ctx context.Context, accountID int64, data []byte) error
}

// AccountStore persists carts in the account record of an authenticated
// principal.
type AccountStore struct {
	accounts SnapshotSource
}

func NewAccountStore(accounts SnapshotSource) *AccountStore {
	return &AccountStore{accounts: accounts}
}

func (s *AccountStore) Load(ctx context.Context, p Principal) (cart.Cart, error) {
	data, err := s.accounts.CartSnapshot(ctx, p.Account)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("%w: account snapshot: %v", ErrPersistence, err)
	}
	if len(data) == 0 {
		return cart.New(), nil
	}

	c, err := cart.Deserialize(data)
	if err != nil {
		log.Printf("discarding undecodable cart for %s: %v", p.Key(), err)
		return cart.New(), nil
	}
	return c, nil
}

func (s *AccountStore) Save(ctx context.Context, p Principal, c cart.Cart) error {
	if err := s.accounts.SaveCartSnapshot(ctx, p.Account, c.Serialize()); err != nil {
		return fmt.Errorf("%w: account snapshot: %v", ErrPersistence, err)
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, p Principal) error {
	if err := s.accounts.SaveCartSnapshot(ctx, p.Account, cart.New().Serialize()); err != nil {
		return fmt.Errorf("%w: account snapshot: %v", ErrPersistence, err)
	}
	return nil
}
