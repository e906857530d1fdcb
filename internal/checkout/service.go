package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/Julien-B-py/online-shop/internal/payment"
	"github.com/google/uuid"
)

// Service drives a checkout attempt from cart to hosted payment session
// and back: initiation prices the cart and redirects the shopper to the
// provider; the success/cancel callbacks settle the session.
type Service struct {
	repo       RepoInterface
	carts      cartstore.Store
	catalog    *catalog.Catalog
	provider   payment.Provider
	successURL string
	cancelURL  string
}

func NewService(repo RepoInterface, carts cartstore.Store, cat *catalog.Catalog, provider payment.Provider, publicBaseURL string) *Service {
	return &Service{
		repo:       repo,
		carts:      carts,
		catalog:    cat,
		provider:   provider,
		successURL: publicBaseURL + "/checkout/success",
		cancelURL:  publicBaseURL + "/checkout/cancel",
	}
}

type InitiateResult struct {
	CheckoutID  string
	Status      Status
	RedirectURL string
}

// Initiate starts a checkout for the principal's current cart. An empty
// cart fails with ErrEmptyCart before any session row or provider call. A
// repeated idempotency key returns the existing session instead of charging
// twice.
func (s *Service) Initiate(ctx context.Context, p cartstore.Principal, idempotencyKey string) (*InitiateResult, error) {
	existingID, status, err := s.repo.GetSessionByIdempotencyKey(ctx, idempotencyKey)
	if err != nil && !errors.Is(err, ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existingID != nil {
		log.Printf("Duplicate checkout request, idempotency_key %v checkout_id %v status %v",
			idempotencyKey, *existingID, *status)
		return &InitiateResult{CheckoutID: *existingID, Status: *status}, nil
	}

	c, err := s.carts.Load(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	snapshot := buildSnapshot(c, s.catalog)
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &Session{
		ID:             uuid.New().String(),
		Principal:      p.Key(),
		CartSnapshot:   snapshotJSON,
		IdempotencyKey: idempotencyKey,
		TotalAmount:    snapshot.TotalAmount.StringFixed(2),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	lines := make([]payment.Line, len(snapshot.Items))
	for i, item := range snapshot.Items {
		lines[i] = payment.Line{PaymentRef: item.PaymentRef, Quantity: item.Quantity}
	}

	providerSession, err := s.provider.CreateSession(ctx, &payment.SessionRequest{
		CheckoutID: session.ID,
		Amount:     session.TotalAmount,
		Currency:   snapshot.Currency,
		Lines:      lines,
		SuccessURL: fmt.Sprintf("%s?checkout_id=%s", s.successURL, session.ID),
		CancelURL:  fmt.Sprintf("%s?checkout_id=%s", s.cancelURL, session.ID),
	})
	if err != nil {
		if failErr := s.repo.UpdateSessionStatus(ctx, session.ID, StatusFailed); failErr != nil {
			log.Printf("failed to fail checkout session %s: %v", session.ID, failErr)
		}
		return nil, fmt.Errorf("failed to create provider session: %w", err)
	}

	if err := s.repo.SetProviderSession(ctx, session.ID, providerSession.ID, StatusPaymentPending); err != nil {
		return nil, fmt.Errorf("failed to record provider session: %w", err)
	}

	return &InitiateResult{
		CheckoutID:  session.ID,
		Status:      StatusPaymentPending,
		RedirectURL: providerSession.RedirectURL,
	}, nil
}

// Complete handles the provider's success callback: the session moves to
// COMPLETED, the completed-order event lands in the outbox, and the
// principal's cart is cleared.
func (s *Service) Complete(ctx context.Context, checkoutID string) error {
	session, err := s.repo.GetSession(ctx, checkoutID)
	if err != nil {
		return err
	}
	if session.Status == StatusCompleted {
		return nil // callback retry, already settled
	}
	if !CanTransitionTo(session.Status, StatusCompleted) {
		return ErrIllegalTransition
	}

	var snapshot Snapshot
	if err := json.Unmarshal(session.CartSnapshot, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":  session.ID,
		"principal":    session.Principal,
		"items":        snapshot.Items,
		"total_amount": snapshot.TotalAmount,
		"currency":     snapshot.Currency,
		"completed_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	if err := s.repo.CompleteSession(ctx, session.ID, payload); err != nil {
		return err
	}

	p, err := cartstore.ParsePrincipal(session.Principal)
	if err != nil {
		return fmt.Errorf("failed to parse session principal: %w", err)
	}
	if err := s.carts.Delete(ctx, p); err != nil {
		// The payment went through; losing the cart clear only leaves
		// stale items behind, so log and surface nothing to the shopper.
		log.Printf("failed to clear cart after checkout %s: %v", session.ID, err)
	}
	return nil
}

// Cancel handles the provider's cancel callback. The cart is left exactly
// as it was.
func (s *Service) Cancel(ctx context.Context, checkoutID string) error {
	session, err := s.repo.GetSession(ctx, checkoutID)
	if err != nil {
		return err
	}
	if session.Status == StatusCancelled {
		return nil
	}
	if !CanTransitionTo(session.Status, StatusCancelled) {
		return ErrIllegalTransition
	}
	return s.repo.UpdateSessionStatus(ctx, checkoutID, StatusCancelled)
}
