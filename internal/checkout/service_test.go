package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Julien-B-py/online-shop/internal/cart"
	"github.com/Julien-B-py/online-shop/internal/cartstore"
	"github.com/Julien-B-py/online-shop/internal/catalog"
	"github.com/Julien-B-py/online-shop/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	byIdemKey map[string]string
	events    []*OutboxEvent
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		sessions:  make(map[string]*Session),
		byIdemKey: make(map[string]string),
	}
}

func (m *mockRepo) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	s := *session
	s.Status = StatusInitiated
	m.sessions[s.ID] = &s
	m.byIdemKey[s.IdempotencyKey] = s.ID
	return nil
}

func (m *mockRepo) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockRepo) GetSessionByIdempotencyKey(ctx context.Context, key string) (*string, *Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byIdemKey[key]
	if !ok {
		return nil, nil, ErrIdempotencyKeyNotFound
	}
	status := m.sessions[id].Status
	return &id, &status, nil
}

func (m *mockRepo) UpdateSessionStatus(ctx context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (m *mockRepo) SetProviderSession(ctx context.Context, id, providerRef string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.ProviderRef.String = providerRef
	s.ProviderRef.Valid = true
	s.Status = status
	return nil
}

func (m *mockRepo) CompleteSession(ctx context.Context, id string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = StatusCompleted
	m.events = append(m.events, &OutboxEvent{
		ID:          int64(len(m.events) + 1),
		AggregateID: id,
		EventType:   "checkout.completed",
		Payload:     payload,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (m *mockRepo) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*OutboxEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *mockRepo) MarkEventAsProcessed(ctx context.Context, eventID int64) error { return nil }

func (m *mockRepo) ExpirePendingSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (m *mockRepo) Close() error { return nil }

func (m *mockRepo) RunMigrations(c *Credentials) error { return nil }

func (m *mockRepo) session(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

type mockCartStore struct {
	mu      sync.RWMutex
	carts   map[string]cart.Cart
	deleted []string
	loadErr error
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[string]cart.Cart)}
}

func (m *mockCartStore) Load(ctx context.Context, p cartstore.Principal) (cart.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return cart.Cart{}, m.loadErr
	}
	if c, ok := m.carts[p.Key()]; ok {
		return c, nil
	}
	return cart.New(), nil
}

func (m *mockCartStore) Save(ctx context.Context, p cartstore.Principal, c cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[p.Key()] = c
	return nil
}

func (m *mockCartStore) Delete(ctx context.Context, p cartstore.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, p.Key())
	m.deleted = append(m.deleted, p.Key())
	return nil
}

type mockProvider struct {
	mu       sync.Mutex
	requests []*payment.SessionRequest
	err      error
}

func (m *mockProvider) CreateSession(ctx context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)
	return &payment.Session{
		ID:          "ps_test",
		RedirectURL: "https://pay.example.com/pay/ps_test",
	}, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: 1, Name: "Mug", Price: decimal.RequireFromString("10.00"), PaymentRef: "price_mug"},
		{ID: 2, Name: "Shirt", Price: decimal.RequireFromString("5.50"), PaymentRef: "price_shirt"},
	})
	require.NoError(t, err)
	return cat
}

func testService(t *testing.T) (*Service, *mockRepo, *mockCartStore, *mockProvider) {
	t.Helper()
	repo := newMockRepo()
	carts := newMockCartStore()
	provider := &mockProvider{}
	svc := NewService(repo, carts, testCatalog(t), provider, "https://shop.example.com")
	return svc, repo, carts, provider
}

func TestService_Initiate(t *testing.T) {
	svc, repo, carts, provider := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1).Add(1).Add(2)))

	res, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentPending, res.Status)
	assert.Equal(t, "https://pay.example.com/pay/ps_test", res.RedirectURL)

	stored := repo.session(res.CheckoutID)
	require.NotNil(t, stored)
	assert.Equal(t, StatusPaymentPending, stored.Status)
	assert.Equal(t, "25.50", stored.TotalAmount)
	assert.Equal(t, "session:tok-1", stored.Principal)
	assert.Equal(t, "ps_test", stored.ProviderRef.String)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "25.50", req.Amount)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, []payment.Line{
		{PaymentRef: "price_mug", Quantity: 2},
		{PaymentRef: "price_shirt", Quantity: 1},
	}, req.Lines)
	assert.True(t, strings.HasPrefix(req.SuccessURL, "https://shop.example.com/checkout/success?checkout_id="))
	assert.True(t, strings.HasPrefix(req.CancelURL, "https://shop.example.com/checkout/cancel?checkout_id="))
}

func TestService_InitiateEmptyCart(t *testing.T) {
	svc, repo, _, provider := testService(t)

	_, err := svc.Initiate(context.Background(), cartstore.Principal{Session: "tok-1"}, "key-1")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, repo.sessions)
	assert.Empty(t, provider.requests)
}

func TestService_InitiateIdempotencyDedup(t *testing.T) {
	svc, _, carts, provider := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1)))

	first, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)

	second, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.CheckoutID, second.CheckoutID)
	assert.Len(t, provider.requests, 1)
}

func TestService_InitiateProviderFailureFailsSession(t *testing.T) {
	svc, repo, carts, provider := testService(t)
	provider.err = errors.New("provider down")
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1)))

	_, err := svc.Initiate(ctx, p, "key-1")
	require.Error(t, err)

	require.Len(t, repo.sessions, 1)
	for _, s := range repo.sessions {
		assert.Equal(t, StatusFailed, s.Status)
	}
}

func TestService_CompleteClearsCartAndEmitsEvent(t *testing.T) {
	svc, repo, carts, _ := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1).Add(2)))
	res, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, res.CheckoutID))

	assert.Equal(t, StatusCompleted, repo.session(res.CheckoutID).Status)
	assert.Contains(t, carts.deleted, "session:tok-1")

	require.Len(t, repo.events, 1)
	ev := repo.events[0]
	assert.Equal(t, res.CheckoutID, ev.AggregateID)
	assert.Equal(t, "checkout.completed", ev.EventType)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Contains(t, payload, "checkout_id")
	assert.Contains(t, payload, "items")
	assert.Equal(t, `"15.50"`, string(payload["total_amount"]))
}

func TestService_CompleteIsIdempotent(t *testing.T) {
	svc, repo, carts, _ := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1)))
	res, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, res.CheckoutID))
	require.NoError(t, svc.Complete(ctx, res.CheckoutID))

	assert.Len(t, repo.events, 1)
}

func TestService_CompleteUnknownSession(t *testing.T) {
	svc, _, _, _ := testService(t)
	err := svc.Complete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_CompleteIllegalTransition(t *testing.T) {
	svc, repo, carts, _ := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	require.NoError(t, carts.Save(ctx, p, cart.New().Add(1)))
	res, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateSessionStatus(ctx, res.CheckoutID, StatusCancelled))
	assert.ErrorIs(t, svc.Complete(ctx, res.CheckoutID), ErrIllegalTransition)
}

func TestService_CancelLeavesCartUntouched(t *testing.T) {
	svc, repo, carts, _ := testService(t)
	ctx := context.Background()
	p := cartstore.Principal{Session: "tok-1"}

	c := cart.New().Add(1).Add(2)
	require.NoError(t, carts.Save(ctx, p, c))
	res, err := svc.Initiate(ctx, p, "key-1")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, res.CheckoutID))
	assert.Equal(t, StatusCancelled, repo.session(res.CheckoutID).Status)

	got, err := carts.Load(ctx, p)
	require.NoError(t, err)
	assert.True(t, c.Equal(got))
	assert.Empty(t, carts.deleted)

	// Callback retries settle quietly.
	require.NoError(t, svc.Cancel(ctx, res.CheckoutID))
}
