package cart

import (
	"errors"
	"strconv"
)

// ErrInvalidItemID is returned when a raw item identifier cannot be parsed.
var ErrInvalidItemID = errors.New("invalid item id")

// Entry is one distinct item in a cart. Quantity is always >= 1; a removed
// item has no entry at all.
type Entry struct {
	ItemID   int64
	Quantity int
}

// Cart holds the items of one shopping session. Entries keep their insertion
// order so the displayed cart and the checkout line items stay consistent
// within a request. The zero value is an empty cart.
//
// All mutating operations return a new Cart and leave the receiver untouched.
type Cart struct {
	entries []Entry
}

// New returns an empty cart.
func New() Cart {
	return Cart{}
}

// ParseItemID parses a raw item identifier as received from a request.
// Anything that is not a positive integer fails with ErrInvalidItemID.
func ParseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidItemID
	}
	return id, nil
}

// Add increments the quantity for itemID, creating the entry at quantity 1
// if absent. Whether the id exists in the catalog is not checked here;
// an unknown id simply prices to nothing at checkout.
func (c Cart) Add(itemID int64) Cart {
	next := c.clone()
	for i := range next.entries {
		if next.entries[i].ItemID == itemID {
			next.entries[i].Quantity++
			return next
		}
	}
	next.entries = append(next.entries, Entry{ItemID: itemID, Quantity: 1})
	return next
}

// Remove deletes the entry for itemID entirely. The second return value
// reports whether anything was removed; removing an absent id is a benign
// no-op, not an error.
func (c Cart) Remove(itemID int64) (Cart, bool) {
	for i, e := range c.entries {
		if e.ItemID == itemID {
			next := Cart{entries: make([]Entry, 0, len(c.entries)-1)}
			next.entries = append(next.entries, c.entries[:i]...)
			next.entries = append(next.entries, c.entries[i+1:]...)
			return next, true
		}
	}
	return c, false
}

// Clear empties the cart. The second return value is false when the cart
// was already empty, so callers can distinguish "all items removed" from
// "cart already empty".
func (c Cart) Clear() (Cart, bool) {
	if len(c.entries) == 0 {
		return c, false
	}
	return Cart{}, true
}

// ItemCount is the total quantity across all entries.
func (c Cart) ItemCount() int {
	count := 0
	for _, e := range c.entries {
		count += e.Quantity
	}
	return count
}

func (c Cart) IsEmpty() bool {
	return len(c.entries) == 0
}

// Quantity returns the quantity for itemID, zero if absent.
func (c Cart) Quantity(itemID int64) int {
	for _, e := range c.entries {
		if e.ItemID == itemID {
			return e.Quantity
		}
	}
	return 0
}

// Entries returns a copy of the cart entries in insertion order.
func (c Cart) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Equal reports whether two carts hold the same entries in the same order.
func (c Cart) Equal(other Cart) bool {
	if len(c.entries) != len(other.entries) {
		return false
	}
	for i := range c.entries {
		if c.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}

func (c Cart) clone() Cart {
	next := Cart{entries: make([]Entry, len(c.entries))}
	copy(next.entries, c.entries)
	return next
}
