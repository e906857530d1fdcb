package checkout

import "errors"

var (
	// ErrEmptyCart means checkout was attempted with nothing to pay for.
	// Hosts route this to a neutral cart-view message, not an error page.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrSessionNotFound   = errors.New("checkout session not found")
)
