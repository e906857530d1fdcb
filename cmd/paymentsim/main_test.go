package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedOutcome struct {
	approve bool
}

func (f fixedOutcome) Approve() bool { return f.approve }

func newTestSimulator(approve bool) *simulator {
	return &simulator{
		sessions: make(map[string]*session),
		baseURL:  "http://sim.test",
		outcome:  fixedOutcome{approve: approve},
	}
}

func validSessionBody() *bytes.Buffer {
	return bytes.NewBufferString(`{
		"checkout_id": "checkout-1",
		"amount": "25.50",
		"currency": "USD",
		"lines": [{"payment_reference": "price_mug", "quantity": 2}],
		"success_url": "http://shop.test/checkout/success?checkout_id=checkout-1",
		"cancel_url": "http://shop.test/checkout/cancel?checkout_id=checkout-1"
	}`)
}

func TestCreateSession(t *testing.T) {
	sim := newTestSimulator(true)

	rec := httptest.NewRecorder()
	sim.createSession(rec, httptest.NewRequest("POST", "/v1/sessions", validSessionBody()))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, strings.HasPrefix(resp["id"], "ps_"))
	assert.Equal(t, "http://sim.test/pay/"+resp["id"], resp["redirect_url"])

	stored, ok := sim.sessions[resp["id"]]
	require.True(t, ok)
	assert.Equal(t, "http://shop.test/checkout/success?checkout_id=checkout-1", stored.SuccessURL)
}

func TestCreateSession_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `not json`},
		{name: "missing checkout_id", body: `{"lines": [{"payment_reference": "p", "quantity": 1}]}`},
		{name: "no lines", body: `{"checkout_id": "checkout-1", "lines": []}`},
		{name: "line without reference", body: `{"checkout_id": "checkout-1", "lines": [{"quantity": 1}]}`},
		{name: "line with zero quantity", body: `{"checkout_id": "checkout-1", "lines": [{"payment_reference": "p", "quantity": 0}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSimulator(true)
			rec := httptest.NewRecorder()
			sim.createSession(rec, httptest.NewRequest("POST", "/v1/sessions", bytes.NewBufferString(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func payRequest(sessionID string) *http.Request {
	req := httptest.NewRequest("GET", "/pay/"+sessionID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("session_id", sessionID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPay_ApprovedRedirectsToSuccess(t *testing.T) {
	sim := newTestSimulator(true)
	sim.sessions["ps_1"] = &session{
		ID:         "ps_1",
		SuccessURL: "http://shop.test/checkout/success?checkout_id=checkout-1",
		CancelURL:  "http://shop.test/checkout/cancel?checkout_id=checkout-1",
	}

	rec := httptest.NewRecorder()
	sim.pay(rec, payRequest("ps_1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "http://shop.test/checkout/success?checkout_id=checkout-1", rec.Header().Get("Location"))
}

func TestPay_DeclinedRedirectsToCancel(t *testing.T) {
	sim := newTestSimulator(false)
	sim.sessions["ps_1"] = &session{
		ID:         "ps_1",
		SuccessURL: "http://shop.test/checkout/success?checkout_id=checkout-1",
		CancelURL:  "http://shop.test/checkout/cancel?checkout_id=checkout-1",
	}

	rec := httptest.NewRecorder()
	sim.pay(rec, payRequest("ps_1"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "http://shop.test/checkout/cancel?checkout_id=checkout-1", rec.Header().Get("Location"))
}

func TestPay_UnknownSession(t *testing.T) {
	sim := newTestSimulator(true)

	rec := httptest.NewRecorder()
	sim.pay(rec, payRequest("ps_missing"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWeightedOutcome_ProducesBothOutcomes(t *testing.T) {
	outcome := WeightedOutcome{}

	approved := 0
	for i := 0; i < 10000; i++ {
		if outcome.Approve() {
			approved++
		}
	}

	// ~95% approval with plenty of slack for randomness.
	assert.Greater(t, approved, 9000)
	assert.Less(t, approved, 10000)
}
