package service

import (
	"context"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
)

// mockStorage implements Storage for testing and captures every write so
// tests can assert on exactly what was persisted.
type mockStorage struct {
	insertTx    bool
	insertTxErr error
	prevTx      *models.PaymentTransaction
	prevTxErr   error

	existingOrder    *models.Order
	existingOrderErr error

	redeemed  bool
	redeemErr error

	cartItems []models.CartItem
	cartErr   error

	address    *models.ShippingAddress
	addressErr error

	createOrderErr error
	createItemsErr error
	clearCartErr   error

	createdTx       *models.PaymentTransaction
	createdOrder    *models.Order
	createdItems    []models.OrderItem
	redeemedCodes   []string
	cartCleared     bool
	reconciliations []models.Reconciliation
}

func (m *mockStorage) CreatePaymentTransaction(_ context.Context, tx *models.PaymentTransaction) (bool, error) {
	if m.insertTxErr != nil {
		return false, m.insertTxErr
	}
	if !m.insertTx {
		return false, nil
	}
	tx.ID = "tx-1"
	m.createdTx = tx
	return true, nil
}

func (m *mockStorage) GetPaymentTransactionByReference(_ context.Context, _ string) (*models.PaymentTransaction, error) {
	return m.prevTx, m.prevTxErr
}

func (m *mockStorage) GetOrderByReference(_ context.Context, _ string) (*models.Order, error) {
	return m.existingOrder, m.existingOrderErr
}

func (m *mockStorage) RedeemDiscount(_ context.Context, code string) (bool, error) {
	m.redeemedCodes = append(m.redeemedCodes, code)
	return m.redeemed, m.redeemErr
}

func (m *mockStorage) GetCartItems(_ context.Context, _ string) ([]models.CartItem, error) {
	return m.cartItems, m.cartErr
}

func (m *mockStorage) GetAddressByID(_ context.Context, _, _ string) (*models.ShippingAddress, error) {
	return m.address, m.addressErr
}

func (m *mockStorage) CreateOrder(_ context.Context, order *models.Order) error {
	if m.createOrderErr != nil {
		return m.createOrderErr
	}
	order.ID = "order-1"
	m.createdOrder = order
	return nil
}

func (m *mockStorage) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	if m.createItemsErr != nil {
		return m.createItemsErr
	}
	m.createdItems = items
	return nil
}

func (m *mockStorage) ClearCart(_ context.Context, _ string) error {
	if m.clearCartErr != nil {
		return m.clearCartErr
	}
	m.cartCleared = true
	return nil
}

func (m *mockStorage) CreateReconciliation(_ context.Context, rec *models.Reconciliation) error {
	rec.ID = "rec-1"
	m.reconciliations = append(m.reconciliations, *rec)
	return nil
}

func (m *mockStorage) reconciliationKinds() []string {
	kinds := make([]string, 0, len(m.reconciliations))
	for _, rec := range m.reconciliations {
		kinds = append(kinds, rec.Kind)
	}
	return kinds
}

// mockGateway implements PaymentGateway for testing
type mockGateway struct {
	result *gateway.VerifyResult
	err    error
	calls  int
}

func (m *mockGateway) VerifyTransaction(_ context.Context, _ string) (*gateway.VerifyResult, error) {
	m.calls++
	return m.result, m.err
}

// mockVerifier implements auth.Verifier for testing
type mockVerifier struct {
	user *auth.User
	err  error
}

func (m *mockVerifier) VerifyToken(_ context.Context, _ string) (*auth.User, error) {
	return m.user, m.err
}

// mockLocker implements Locker for testing
type mockLocker struct {
	acquired   bool
	acquireErr error
	seen       map[string]string
	marked     map[string]string
	released   []string
}

func newMockLocker() *mockLocker {
	return &mockLocker{
		acquired: true,
		seen:     map[string]string{},
		marked:   map[string]string{},
	}
}

func (m *mockLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return m.acquired, m.acquireErr
}

func (m *mockLocker) ReleaseLock(_ context.Context, key string) error {
	m.released = append(m.released, key)
	return nil
}

func (m *mockLocker) MarkReferenceSeen(_ context.Context, reference, orderID string, _ time.Duration) error {
	m.marked[reference] = orderID
	return nil
}

func (m *mockLocker) GetSeenReference(_ context.Context, reference string) (string, error) {
	return m.seen[reference], nil
}

// mockPublisher implements Publisher for testing
type mockPublisher struct {
	placed   []*models.OrderPlacedEvent
	opened   []*models.ReconciliationEvent
	placeErr error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, event *models.OrderPlacedEvent) error {
	m.placed = append(m.placed, event)
	return m.placeErr
}

func (m *mockPublisher) PublishReconciliationOpened(_ context.Context, event *models.ReconciliationEvent) error {
	m.opened = append(m.opened, event)
	return nil
}
