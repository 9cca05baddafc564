package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/cache"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/repository"
)

// In-memory mocks with the same concurrency semantics as the real
// repositories, so race-oriented tests exercise the actual guarantees.

type mockCartRepo struct {
	mu       sync.Mutex
	carts    map[string]*domain.Cart // by cart id
	updates  int
	forceErr error
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*domain.Cart)}
}

func (m *mockCartRepo) GetActiveCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceErr != nil {
		return nil, m.forceErr
	}
	for _, c := range m.carts {
		if c.UserID == userID && c.Status == domain.CartStatusActive {
			cp := *c
			cp.Items = append([]domain.CartItem(nil), c.Items...)
			return &cp, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *mockCartRepo) CreateCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceErr != nil {
		return m.forceErr
	}
	for _, c := range m.carts {
		if c.UserID == cart.UserID && c.Status == domain.CartStatusActive {
			return repository.ErrDuplicateActiveCart
		}
	}
	cp := *cart
	m.carts[cart.ID] = &cp
	return nil
}

func (m *mockCartRepo) UpdateCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceErr != nil {
		return m.forceErr
	}
	existing, ok := m.carts[cart.ID]
	if !ok || existing.Status != domain.CartStatusActive {
		return repository.ErrCartNotFound
	}
	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	m.carts[cart.ID] = &cp
	m.updates++
	return nil
}

func (m *mockCartRepo) CloseCart(_ context.Context, cartID string, status domain.CartStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[cartID]
	if !ok || c.Status != domain.CartStatusActive {
		return nil // already closed, no-op
	}
	c.Status = status
	return nil
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*domain.CheckoutSession)}
}

func (m *mockSessionRepo) CreateSession(_ context.Context, s *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) GetSession(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) UpdateSession(_ context.Context, s *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return repository.ErrSessionNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) ClaimSession(_ context.Context, sessionID string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.Status != domain.SessionStatusCreated {
		return nil, repository.ErrSessionNotFound
	}
	s.Status = domain.SessionStatusConfirming
	cp := *s
	return &cp, nil
}

func (m *mockSessionRepo) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

type mockPromoRepo struct {
	mu     sync.Mutex
	promos map[string]*domain.PromoCode
	usages []*domain.PromoCodeUsage
	seq    int
}

func newMockPromoRepo() *mockPromoRepo {
	return &mockPromoRepo{promos: make(map[string]*domain.PromoCode)}
}

func (m *mockPromoRepo) addPromo(p *domain.PromoCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[p.Code] = p
}

func (m *mockPromoRepo) GetByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[domain.NormalizeCode(code)]
	if !ok {
		return nil, repository.ErrPromoNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPromoRepo) CreatePromoCode(_ context.Context, p *domain.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promos[p.Code] = p
	return nil
}

func (m *mockPromoRepo) CountUsages(_ context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(code, ""), nil
}

func (m *mockPromoRepo) CountUserUsages(_ context.Context, code, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(code, userID), nil
}

func (m *mockPromoRepo) countLocked(code, userID string) int64 {
	var n int64
	for _, u := range m.usages {
		if u.Code != code {
			continue
		}
		if userID != "" && u.UserID != userID {
			continue
		}
		n++
	}
	return n
}

func (m *mockPromoRepo) ReserveUsage(_ context.Context, usage *domain.PromoCodeUsage, usageLimit, perUserLimit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if usageLimit > 0 && m.countLocked(usage.Code, "") >= int64(usageLimit) {
		return repository.ErrUsageLimitExceeded
	}
	if perUserLimit > 0 && m.countLocked(usage.Code, usage.UserID) >= int64(perUserLimit) {
		return repository.ErrUsageLimitExceeded
	}
	m.seq++
	cp := *usage
	cp.ID = fmt.Sprintf("usage-%d", m.seq)
	cp.UsedAt = time.Now()
	m.usages = append(m.usages, &cp)
	return nil
}

type mockOrderRepo struct {
	mu      sync.Mutex
	orders  map[string]*domain.Order
	history []*domain.OrderStatusHistory
	intents []*domain.PaymentIntent
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) MarkPaymentProcessing(_ context.Context, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.PaymentStatus != domain.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusProcessing
	return true, nil
}

func (m *mockOrderRepo) CompletePayment(_ context.Context, orderID, transactionID, method string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	switch o.PaymentStatus {
	case domain.PaymentStatusPending, domain.PaymentStatusProcessing, domain.PaymentStatusFailed:
	default:
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusCompleted
	o.Status = domain.OrderStatusConfirmed
	o.ProviderTransactionID = transactionID
	o.PaymentMethod = method
	return true, nil
}

func (m *mockOrderRepo) FailPayment(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.PaymentStatus != domain.PaymentStatusCompleted {
		o.PaymentStatus = domain.PaymentStatusFailed
	}
	return nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, orderID string, from, to domain.OrderStatus, set map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	for k, v := range set {
		switch k {
		case "cancelled_at":
			t := v.(time.Time)
			o.CancelledAt = &t
		case "cancelled_by":
			o.CancelledBy = v.(domain.Actor)
		case "cancel_reason":
			o.CancelReason = v.(string)
		case "payment_status":
			o.PaymentStatus = v.(domain.PaymentStatus)
		case "refund_amount":
			o.RefundAmount = v.(float64)
		case "refunded_at":
			t := v.(time.Time)
			o.RefundedAt = &t
		}
	}
	return true, nil
}

func (m *mockOrderRepo) AppendHistory(_ context.Context, h *domain.OrderStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *h
	cp.CreatedAt = time.Now()
	m.history = append(m.history, &cp)
	return nil
}

func (m *mockOrderRepo) ListHistory(_ context.Context, orderID string) ([]*domain.OrderStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OrderStatusHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) CreatePaymentIntent(_ context.Context, intent *domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.intents = append(m.intents, &cp)
	return nil
}

func (m *mockOrderRepo) historyFor(orderID string) []*domain.OrderStatusHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OrderStatusHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out
}

type mockCache struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
	sets  int
	dels  int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	m.sets++
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	m.dels++
	return nil
}

type mockCatalog struct {
	mu       sync.Mutex
	products map[string]*Product
	err      error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{products: make(map[string]*Product)}
}

func (m *mockCatalog) add(p *Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *mockCatalog) setPrice(productID string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID].Price = price
}

func (m *mockCatalog) GetProduct(_ context.Context, productID string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s not found", productID)
	}
	cp := *p
	return &cp, nil
}

type mockDelivery struct {
	fee float64
	err error
}

func (m *mockDelivery) Fee(context.Context, string) (float64, error) {
	return m.fee, m.err
}

type mockProvider struct {
	verified bool
	reason   string
	err      error
}

func (m *mockProvider) Verify(context.Context, string, string, string) (bool, string, error) {
	return m.verified, m.reason, m.err
}

type mockNotifier struct {
	mu        sync.Mutex
	confirmed []string
	changed   []string
}

func (m *mockNotifier) OrderConfirmed(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append(m.confirmed, order.ID)
	return nil
}

func (m *mockNotifier) OrderStatusChanged(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, order.ID)
	return nil
}
