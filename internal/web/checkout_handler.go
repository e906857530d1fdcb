package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/Julien-B-py/online-shop/internal/checkout"
	"github.com/google/uuid"
)

type CheckoutService interface {
	Initiate(ctx context.Context, p cartstore.Principal, idempotencyKey string) (*checkout.InitiateResult, error)
	Complete(ctx context.Context, checkoutID string) error
	Cancel(ctx context.Context, checkoutID string) error
}

type CheckoutHandler struct {
	service CheckoutService
}

func NewCheckoutHandler(service CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

type initiateResponseDTO struct {
	CheckoutID  string `json:"checkout_id"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Initiate starts payment for the current cart. Clients may pass an
// Idempotency-Key header to make retries safe; without one each attempt
// is a fresh checkout.
func (h *CheckoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	result, err := h.service.Initiate(r.Context(), p, idempotencyKey)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondError(w, http.StatusConflict, "empty_cart", "your cart is empty")
			return
		}
		respondError(w, http.StatusBadGateway, "checkout_failed", "could not start checkout")
		return
	}

	respondJSON(w, http.StatusCreated, initiateResponseDTO{
		CheckoutID:  result.CheckoutID,
		Status:      result.Status.String(),
		RedirectURL: result.RedirectURL,
	})
}

// Success is the provider's return URL after a completed payment.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.URL.Query().Get("checkout_id")
	if checkoutID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing checkout_id")
		return
	}

	if err := h.service.Complete(r.Context(), checkoutID); err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "payment received, your cart has been cleared",
	})
}

// Cancel is the provider's return URL when the shopper backs out. The
// cart stays as it was.
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.URL.Query().Get("checkout_id")
	if checkoutID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing checkout_id")
		return
	}

	if err := h.service.Cancel(r.Context(), checkoutID); err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "payment cancelled, your cart is untouched",
	})
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no such checkout session")
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_state", "checkout session is not in a payable state")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
