// paymentsim is a stand-in for the hosted checkout provider: it accepts
// session creation calls from the storefront and, when the shopper visits
// the hosted page, redirects back to the success or cancel URL with a
// weighted random outcome.
package main

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type sessionRequest struct {
	CheckoutID string `json:"checkout_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Lines      []struct {
		PaymentRef string `json:"payment_reference"`
		Quantity   int    `json:"quantity"`
	} `json:"lines"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type session struct {
	ID         string
	SuccessURL string
	CancelURL  string
}

type OutcomePicker interface {
	Approve() bool
}

// WeightedOutcome approves ~95% of payments, like a well-behaved acquirer.
type WeightedOutcome struct{}

func (WeightedOutcome) Approve() bool {
	return rand.Intn(101) < 95 // 101 because Intn is exclusive of the upper bound
}

type simulator struct {
	mu       sync.Mutex
	sessions map[string]*session
	baseURL  string
	outcome  OutcomePicker
}

func (s *simulator) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.CheckoutID == "" || len(req.Lines) == 0 {
		http.Error(w, "missing checkout_id or lines", http.StatusBadRequest)
		return
	}
	for _, line := range req.Lines {
		if line.PaymentRef == "" || line.Quantity < 1 {
			http.Error(w, "bad line item", http.StatusBadRequest)
			return
		}
	}

	sess := &session{
		ID:         "ps_" + uuid.NewString(),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Printf("session %s created for checkout %s (%s %s, %d lines)",
		sess.ID, req.CheckoutID, req.Amount, req.Currency, len(req.Lines))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"id":           sess.ID,
		"redirect_url": s.baseURL + "/pay/" + sess.ID,
	})
}

func (s *simulator) pay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	if s.outcome.Approve() {
		log.Printf("session %s approved", id)
		http.Redirect(w, r, sess.SuccessURL, http.StatusSeeOther)
		return
	}

	log.Printf("session %s declined", id)
	http.Redirect(w, r, sess.CancelURL, http.StatusSeeOther)
}

func main() {
	port := getEnv("PAYMENTSIM_PORT", "8081")
	baseURL := getEnv("PAYMENTSIM_BASE_URL", "http://localhost:"+port)

	sim := &simulator{
		sessions: make(map[string]*session),
		baseURL:  baseURL,
		outcome:  WeightedOutcome{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Post("/v1/sessions", sim.createSession)
	r.Get("/pay/{session_id}", sim.pay)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("payment simulator listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down payment simulator...")
	if err := srv.Close(); err != nil {
		log.Printf("close error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
