package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() *SessionRequest {
	return &SessionRequest{
		CheckoutID: "checkout-1",
		Amount:     "25.50",
		Currency:   "USD",
		Lines: []Line{
			{PaymentRef: "price_mug", Quantity: 2},
		},
		SuccessURL: "https://shop.example.com/checkout/success?checkout_id=checkout-1",
		CancelURL:  "https://shop.example.com/checkout/cancel?checkout_id=checkout-1",
	}
}

func TestClient_CreateSession(t *testing.T) {
	var gotReq SessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Session{
			ID:          "ps_123",
			RedirectURL: "https://pay.example.com/pay/ps_123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	session, err := client.CreateSession(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "ps_123", session.ID)
	assert.Equal(t, "https://pay.example.com/pay/ps_123", session.RedirectURL)

	assert.Equal(t, "checkout-1", gotReq.CheckoutID)
	assert.Equal(t, "25.50", gotReq.Amount)
	require.Len(t, gotReq.Lines, 1)
	assert.Equal(t, Line{PaymentRef: "price_mug", Quantity: 2}, gotReq.Lines[0])
}

func TestClient_CreateSessionNoAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(Session{ID: "ps_1", RedirectURL: "https://pay.example.com/pay/ps_1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.CreateSession(context.Background(), testRequest())
	assert.NoError(t, err)
}

func TestClient_CreateSessionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.CreateSession(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_CreateSessionIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Session{ID: "ps_123"}) // no redirect URL
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.CreateSession(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.CreateSession(ctx, testRequest())
		require.Error(t, err)
	}

	// Breaker is now open; calls fail without reaching the provider.
	_, err := client.CreateSession(ctx, testRequest())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
