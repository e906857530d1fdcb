// Package payment talks to the hosted checkout provider. The storefront
// never charges cards itself; it creates a provider session from the priced
// cart lines and redirects the shopper to the provider's hosted page.
package payment

import "context"

// Line is one item of a provider session: the provider-side reference for
// the catalog item plus the quantity to charge for.
type Line struct {
	PaymentRef string `json:"payment_reference"`
	Quantity   int    `json:"quantity"`
}

type SessionRequest struct {
	CheckoutID string `json:"checkout_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Lines      []Line `json:"lines"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

// Session is the provider's handle for one hosted checkout attempt.
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

type Provider interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)
}
