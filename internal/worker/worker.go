package worker

import (
	"context"
	"fmt"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// RepairStore is the subset of the store the repair worker needs.
type RepairStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetCartItems(ctx context.Context, userID string) ([]models.CartItem, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	UpdateOrderItemsCount(ctx context.Context, orderID string, count int) error
	ClearCart(ctx context.Context, userID string) error
	CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) (bool, error)
	GetPaymentTransactionByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	LinkPaymentTransaction(ctx context.Context, orderID, transactionID string) error
	ResolveReconciliation(ctx context.Context, id string) error
}

// ReconciliationWorker repairs degraded finalizations in the background. It
// consumes ReconciliationOpened events and fixes what is mechanically
// repairable; everything else stays pending for manual review.
type ReconciliationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        RepairStore
	logger       *zap.Logger
}

// NewReconciliationWorker creates a new reconciliation worker.
func NewReconciliationWorker(consumer *broker.Consumer, store RepairStore) *ReconciliationWorker {
	w := &ReconciliationWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnReconciliationOpened(w.HandleReconciliation)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ReconciliationWorker) Start(ctx context.Context) error {
	log.Println("Starting reconciliation worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconciliationWorker) Stop() error {
	log.Println("Stopping reconciliation worker...")
	return w.consumer.Close()
}

// HandleReconciliation repairs a single degraded finalization.
func (w *ReconciliationWorker) HandleReconciliation(ctx context.Context, event *models.ReconciliationEvent) error {
	ctx, span := util.StartSpan(ctx, "ReconciliationWorker.HandleReconciliation")
	defer span.End()

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Info("Repairing degraded finalization",
		zap.String("order_id", event.OrderID),
		zap.String("kind", event.Kind))

	var repaired bool
	switch event.Kind {
	case models.ReconciliationOrderWithoutItems:
		repaired, err = w.repairMissingItems(ctx, event)
	case models.ReconciliationCartNotCleared:
		repaired, err = w.repairUnclearedCart(ctx, event)
	case models.ReconciliationOrderWithoutTransaction:
		repaired, err = w.repairMissingTransaction(ctx, event)
	default:
		// zero_item_order, amount_mismatch and address_missing need a human.
		w.logger.Warn("Reconciliation kind requires manual review",
			zap.String("order_id", event.OrderID),
			zap.String("kind", event.Kind))
	}
	if err != nil {
		return err
	}

	if repaired {
		if err := w.store.ResolveReconciliation(ctx, event.ReconciliationID); err != nil {
			return fmt.Errorf("failed to resolve reconciliation: %w", err)
		}
		util.ReconciliationsResolvedTotal.WithLabelValues(event.Kind).Inc()
		w.logger.Info("Reconciliation resolved",
			zap.String("order_id", event.OrderID),
			zap.String("kind", event.Kind))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	return nil
}

// repairMissingItems rebuilds the line items of a paid order from the cart,
// which is still intact because the cart is only cleared after a successful
// item insert.
func (w *ReconciliationWorker) repairMissingItems(ctx context.Context, event *models.ReconciliationEvent) (bool, error) {
	items, err := w.store.GetCartItems(ctx, event.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to reload cart: %w", err)
	}
	if len(items) == 0 {
		w.logger.Warn("Cart is gone, cannot rebuild order items",
			zap.String("order_id", event.OrderID))
		return false, nil
	}

	if err := w.store.CreateOrderItems(ctx, models.OrderItemsFromCart(event.OrderID, items)); err != nil {
		return false, fmt.Errorf("failed to recreate order items: %w", err)
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	if err := w.store.UpdateOrderItemsCount(ctx, event.OrderID, count); err != nil {
		w.logger.Error("Failed to update items count", zap.Error(err))
	}

	if err := w.store.ClearCart(ctx, event.UserID); err != nil {
		w.logger.Error("Failed to clear cart during repair", zap.Error(err))
	}

	return true, nil
}

func (w *ReconciliationWorker) repairUnclearedCart(ctx context.Context, event *models.ReconciliationEvent) (bool, error) {
	if err := w.store.ClearCart(ctx, event.UserID); err != nil {
		return false, fmt.Errorf("failed to clear cart: %w", err)
	}
	return true, nil
}

// repairMissingTransaction re-inserts the payment audit record and links it
// to the order. The order's total is the gateway-verified amount, so the
// rebuilt record carries the same value the gateway reported.
func (w *ReconciliationWorker) repairMissingTransaction(ctx context.Context, event *models.ReconciliationEvent) (bool, error) {
	order, err := w.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return false, fmt.Errorf("failed to load order: %w", err)
	}

	tx := &models.PaymentTransaction{
		UserID:    order.UserID,
		Amount:    order.TotalAmount,
		Reference: event.Reference,
		Status:    models.TransactionStatusSuccess,
		Provider:  models.PaymentProvider,
	}

	inserted, err := w.store.CreatePaymentTransaction(ctx, tx)
	if err != nil {
		return false, fmt.Errorf("failed to recreate payment transaction: %w", err)
	}

	txID := tx.ID
	if !inserted {
		prev, err := w.store.GetPaymentTransactionByReference(ctx, event.Reference)
		if err != nil || prev == nil {
			return false, fmt.Errorf("conflicting reference has no retrievable transaction: %w", err)
		}
		txID = prev.ID
	}

	if err := w.store.LinkPaymentTransaction(ctx, event.OrderID, txID); err != nil {
		return false, fmt.Errorf("failed to link payment transaction: %w", err)
	}

	return true, nil
}
