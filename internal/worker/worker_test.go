package worker

import (
	"context"
	"errors"
	"testing"

	"checkout-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepairStore struct {
	processed map[string]bool
	order     *models.Order
	orderErr  error
	cartItems []models.CartItem
	cartErr   error
	insertTx  bool
	prevTx    *models.PaymentTransaction

	createdItems []models.OrderItem
	createdTx    *models.PaymentTransaction
	linkedTxID   string
	itemsCount   int
	cartCleared  bool
	resolved     []string
	marked       []string
}

func newMockRepairStore() *mockRepairStore {
	return &mockRepairStore{processed: map[string]bool{}, insertTx: true}
}

func (m *mockRepairStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	return m.processed[eventID], nil
}

func (m *mockRepairStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	m.marked = append(m.marked, eventID)
	return nil
}

func (m *mockRepairStore) GetOrderByID(_ context.Context, _ string) (*models.Order, error) {
	return m.order, m.orderErr
}

func (m *mockRepairStore) GetCartItems(_ context.Context, _ string) ([]models.CartItem, error) {
	return m.cartItems, m.cartErr
}

func (m *mockRepairStore) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	m.createdItems = items
	return nil
}

func (m *mockRepairStore) UpdateOrderItemsCount(_ context.Context, _ string, count int) error {
	m.itemsCount = count
	return nil
}

func (m *mockRepairStore) ClearCart(_ context.Context, _ string) error {
	m.cartCleared = true
	return nil
}

func (m *mockRepairStore) CreatePaymentTransaction(_ context.Context, tx *models.PaymentTransaction) (bool, error) {
	if !m.insertTx {
		return false, nil
	}
	tx.ID = "tx-new"
	m.createdTx = tx
	return true, nil
}

func (m *mockRepairStore) GetPaymentTransactionByReference(_ context.Context, _ string) (*models.PaymentTransaction, error) {
	return m.prevTx, nil
}

func (m *mockRepairStore) LinkPaymentTransaction(_ context.Context, _, transactionID string) error {
	m.linkedTxID = transactionID
	return nil
}

func (m *mockRepairStore) ResolveReconciliation(_ context.Context, id string) error {
	m.resolved = append(m.resolved, id)
	return nil
}

func reconEvent(kind string) *models.ReconciliationEvent {
	return &models.ReconciliationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "event-1",
			EventType: models.EventTypeReconciliationOpened,
		},
		ReconciliationID: "rec-1",
		OrderID:          "order-1",
		UserID:           "user-1",
		Reference:        "ref_123",
		Kind:             kind,
	}
}

func newTestWorker(st *mockRepairStore) *ReconciliationWorker {
	return &ReconciliationWorker{store: st, logger: zap.NewNop()}
}

func TestHandleReconciliation_AlreadyProcessed(t *testing.T) {
	st := newMockRepairStore()
	st.processed["event-1"] = true
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationCartNotCleared))

	require.NoError(t, err)
	assert.False(t, st.cartCleared)
	assert.Empty(t, st.resolved)
}

func TestRepairMissingItems(t *testing.T) {
	st := newMockRepairStore()
	st.cartItems = []models.CartItem{
		{ProductID: "product-1", Quantity: 2, ProductName: "Mug", ProductPrice: decimal.NewFromInt(100)},
		{ProductID: "product-2", Quantity: 3, ProductName: "Cap", ProductPrice: decimal.NewFromInt(20)},
	}
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationOrderWithoutItems))

	require.NoError(t, err)
	require.Len(t, st.createdItems, 2)
	assert.Equal(t, "order-1", st.createdItems[0].OrderID)
	assert.Equal(t, 5, st.itemsCount)
	assert.True(t, st.cartCleared)
	assert.Equal(t, []string{"rec-1"}, st.resolved)
	assert.Equal(t, []string{"event-1"}, st.marked)
}

func TestRepairMissingItems_CartGone(t *testing.T) {
	st := newMockRepairStore()
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationOrderWithoutItems))

	require.NoError(t, err)
	assert.Empty(t, st.resolved)
	// Marked processed so the event is not redelivered forever; the
	// reconciliation row stays pending for manual review.
	assert.Equal(t, []string{"event-1"}, st.marked)
}

func TestRepairMissingItems_CartReadError(t *testing.T) {
	st := newMockRepairStore()
	st.cartErr = errors.New("connection refused")
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationOrderWithoutItems))

	require.Error(t, err)
	assert.Empty(t, st.marked)
}

func TestRepairUnclearedCart(t *testing.T) {
	st := newMockRepairStore()
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationCartNotCleared))

	require.NoError(t, err)
	assert.True(t, st.cartCleared)
	assert.Equal(t, []string{"rec-1"}, st.resolved)
}

func TestRepairMissingTransaction(t *testing.T) {
	st := newMockRepairStore()
	st.order = &models.Order{
		ID:          "order-1",
		UserID:      "user-1",
		TotalAmount: decimal.RequireFromString("249.00"),
	}
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationOrderWithoutTransaction))

	require.NoError(t, err)
	require.NotNil(t, st.createdTx)
	assert.Equal(t, "ref_123", st.createdTx.Reference)
	assert.True(t, st.createdTx.Amount.Equal(decimal.RequireFromString("249.00")))
	assert.Equal(t, "tx-new", st.linkedTxID)
	assert.Equal(t, []string{"rec-1"}, st.resolved)
}

func TestRepairMissingTransaction_ExistingRow(t *testing.T) {
	st := newMockRepairStore()
	st.order = &models.Order{ID: "order-1", UserID: "user-1", TotalAmount: decimal.NewFromInt(100)}
	st.insertTx = false
	st.prevTx = &models.PaymentTransaction{ID: "tx-old", Reference: "ref_123"}
	w := newTestWorker(st)

	err := w.HandleReconciliation(context.Background(), reconEvent(models.ReconciliationOrderWithoutTransaction))

	require.NoError(t, err)
	assert.Equal(t, "tx-old", st.linkedTxID)
	assert.Equal(t, []string{"rec-1"}, st.resolved)
}

func TestManualReviewKindsAreNotResolved(t *testing.T) {
	for _, kind := range []string{
		models.ReconciliationZeroItemOrder,
		models.ReconciliationAmountMismatch,
		models.ReconciliationAddressMissing,
	} {
		st := newMockRepairStore()
		w := newTestWorker(st)

		err := w.HandleReconciliation(context.Background(), reconEvent(kind))

		require.NoError(t, err, kind)
		assert.Empty(t, st.resolved, kind)
		assert.Equal(t, []string{"event-1"}, st.marked, kind)
	}
}
