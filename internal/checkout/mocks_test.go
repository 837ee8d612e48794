package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/victorcanash/EcommerceAPI-sub000/domain"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/mailer"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/order"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/payment"
	"github.com/victorcanash/EcommerceAPI-sub000/internal/supplier"
)

type mockCartSource struct {
	mu             sync.Mutex
	carts          map[string]*domain.Cart
	persistedClamp map[string][]domain.ChangedLine
	cleared        []string
	getErr         error
}

func newMockCartSource() *mockCartSource {
	return &mockCartSource{
		carts:          make(map[string]*domain.Cart),
		persistedClamp: make(map[string][]domain.ChangedLine),
	}
}

func (m *mockCartSource) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return &domain.Cart{UserID: userID}, nil
}

func (m *mockCartSource) PersistClampedQuantities(_ context.Context, userID string, changed []domain.ChangedLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistedClamp[userID] = append(m.persistedClamp[userID], changed...)
	return nil
}

func (m *mockCartSource) ClearCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, userID)
	return nil
}

// mockInventory serves a fixed availability per SKU and records committed
// decrements.
type mockInventory struct {
	mu        sync.Mutex
	catalog   map[int64]domain.CartViewLine // keyed by inventory id
	committed map[int64]int
	commitErr error
}

func newMockInventory() *mockInventory {
	return &mockInventory{
		catalog:   make(map[int64]domain.CartViewLine),
		committed: make(map[int64]int),
	}
}

func (m *mockInventory) Resolve(_ context.Context, userID string, lines []domain.CartLine) (*domain.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := &domain.CartView{UserID: userID}
	for _, line := range lines {
		entry, ok := m.catalog[line.InventoryID]
		if !ok {
			continue
		}
		entry.Quantity = line.Quantity
		view.Lines = append(view.Lines, entry)
	}
	return view, nil
}

func (m *mockInventory) CheckAndClamp(view *domain.CartView) (*domain.CartView, []domain.ChangedLine) {
	clamped := &domain.CartView{UserID: view.UserID}
	var changed []domain.ChangedLine
	for _, line := range view.Lines {
		if line.Available <= 0 {
			changed = append(changed, domain.ChangedLine{
				InventoryID: line.InventoryID, SKU: line.SKU,
				Requested: line.Quantity, Quantity: 0,
			})
			continue
		}
		if line.Quantity > line.Available {
			changed = append(changed, domain.ChangedLine{
				InventoryID: line.InventoryID, SKU: line.SKU,
				Requested: line.Quantity, Quantity: line.Available,
			})
			line.Quantity = line.Available
		}
		clamped.Lines = append(clamped.Lines, line)
	}
	return clamped, changed
}

func (m *mockInventory) Commit(_ context.Context, view *domain.CartView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, line := range view.Lines {
		m.committed[line.InventoryID] += line.Quantity
	}
	return nil
}

type mockPricer struct {
	breakdown *domain.PriceBreakdown
	err       error
	calls     int
}

func (m *mockPricer) Price(_ context.Context, cart *domain.CartView, _ string) (*domain.PriceBreakdown, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return m.breakdown, nil
}

type mockOrderStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	sessions map[uuid.UUID]*order.CheckoutSession
	byKey    map[string]uuid.UUID

	deleted   []uuid.UUID
	createErr error
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders:   make(map[uuid.UUID]*domain.Order),
		sessions: make(map[uuid.UUID]*order.CheckoutSession),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (m *mockOrderStore) CreateOrder(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderStore) SetSupplierOrder(_ context.Context, id uuid.UUID, supplierOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.SupplierOrderID = supplierOrderID
	o.Status = domain.OrderStatusPlaced
	return nil
}

func (m *mockOrderStore) DeleteOrder(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return order.ErrOrderNotFound
	}
	delete(m.orders, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockOrderStore) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderStore) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
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

func (m *mockOrderStore) CreateCheckoutSession(_ context.Context, session *order.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byKey[session.IdempotencyKey]; exists {
		return order.ErrDuplicateSession
	}
	cp := *session
	m.sessions[session.ID] = &cp
	m.byKey[session.IdempotencyKey] = session.ID
	return nil
}

func (m *mockOrderStore) GetSessionByIdempotencyKey(_ context.Context, key string) (*uuid.UUID, *domain.CheckoutStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, nil, order.ErrIdempotencyKeyNotFound
	}
	status := m.sessions[id].Status
	return &id, &status, nil
}

func (m *mockOrderStore) GetSession(_ context.Context, id uuid.UUID) (*order.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, order.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockOrderStore) UpdateSessionStatus(_ context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return order.ErrSessionNotFound
	}
	s.Status = status
	return nil
}

func (m *mockOrderStore) SetSessionProviderOrder(_ context.Context, id uuid.UUID, status domain.CheckoutStatus, providerOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return order.ErrSessionNotFound
	}
	s.Status = status
	s.ProviderOrderID = providerOrderID
	return nil
}

func (m *mockOrderStore) SetSessionPayment(_ context.Context, id uuid.UUID, status domain.CheckoutStatus, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return order.ErrSessionNotFound
	}
	s.Status = status
	s.TransactionID = transactionID
	return nil
}

func (m *mockOrderStore) CompleteSession(_ context.Context, id uuid.UUID, status domain.CheckoutStatus, orderID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return order.ErrSessionNotFound
	}
	s.Status = status
	s.OrderID = orderID
	return nil
}

// mockGateway simulates either provider depending on capturesAtSale.
type mockGateway struct {
	mu             sync.Mutex
	capturesAtSale bool
	provider       domain.Provider
	createErr      error
	captureErr     error

	createCalls  int
	captureCalls int
	lastRequest  *payment.TransactionRequest
}

func (m *mockGateway) CreateTransaction(_ context.Context, req *payment.TransactionRequest) (*payment.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	m.lastRequest = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.capturesAtSale {
		return &payment.Transaction{
			ProviderOrderID: "prov-order-1",
			Captured: &domain.PaymentResult{
				ExternalTransactionID: "tx-123",
				Provider:              m.provider,
				CapturedAmount:        req.Breakdown.Total,
			},
		}, nil
	}
	return &payment.Transaction{
		ProviderOrderID: "prov-order-1",
		ApprovalURL:     "https://provider.example.com/approve/prov-order-1",
	}, nil
}

func (m *mockGateway) CaptureTransaction(_ context.Context, providerOrderID string) (*domain.PaymentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureCalls++
	if m.captureErr != nil {
		return nil, m.captureErr
	}
	return &domain.PaymentResult{
		ExternalTransactionID: "cap-" + providerOrderID,
		Provider:              m.provider,
	}, nil
}

type mockSupplier struct {
	mu      sync.Mutex
	orderID string
	err     error
	placed  []*supplier.PurchaseOrder
}

func (m *mockSupplier) PlaceOrder(_ context.Context, po *supplier.PurchaseOrder) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed = append(m.placed, po)
	if m.err != nil {
		return "", m.err
	}
	return m.orderID, nil
}

type mockMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	// errOn fails Send for the given template only
	errOn map[string]error
}

func newMockMailer() *mockMailer {
	return &mockMailer{errOn: make(map[string]error)}
}

func (m *mockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errOn[msg.Template]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockMailer) sentTemplates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.Template)
	}
	return out
}
