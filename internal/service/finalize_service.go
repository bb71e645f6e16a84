package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/auth"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
)

// Storage is the subset of the store used by the finalize saga.
type Storage interface {
	CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) (bool, error)
	GetPaymentTransactionByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error)
	GetOrderByReference(ctx context.Context, reference string) (*models.Order, error)
	RedeemDiscount(ctx context.Context, code string) (bool, error)
	GetCartItems(ctx context.Context, userID string) ([]models.CartItem, error)
	GetAddressByID(ctx context.Context, id, userID string) (*models.ShippingAddress, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	ClearCart(ctx context.Context, userID string) error
	CreateReconciliation(ctx context.Context, rec *models.Reconciliation) error
}

// PaymentGateway verifies a transaction reference.
type PaymentGateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*gateway.VerifyResult, error)
}

// Locker provides the per-checkout lock and the settled-reference cache.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	MarkReferenceSeen(ctx context.Context, reference, orderID string, ttl time.Duration) error
	GetSeenReference(ctx context.Context, reference string) (string, error)
}

// Publisher emits domain events.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishReconciliationOpened(ctx context.Context, event *models.ReconciliationEvent) error
}

// FinalizeRequest is the client's post-checkout submission.
type FinalizeRequest struct {
	Reference        string  `json:"reference"`
	DeliveryMethodID string  `json:"deliveryMethodId"`
	AddressID        string  `json:"addressId"`
	DiscountCode     *string `json:"discountCode"`
}

// FinalizeResponse carries the id of the created (or replayed) order.
type FinalizeResponse struct {
	OrderID string `json:"orderId"`
}

// FinalizeService turns a gateway-verified payment into a durable order. It
// is the sole writer of "paid" orders and the sole consumer of carts.
type FinalizeService struct {
	store     Storage
	gateway   PaymentGateway
	auth      auth.Verifier
	locker    Locker
	publisher Publisher
	logger    *zap.Logger
	lockTTL   time.Duration
	refTTL    time.Duration
}

// NewFinalizeService creates a new finalize service.
func NewFinalizeService(
	store Storage,
	gw PaymentGateway,
	verifier auth.Verifier,
	locker Locker,
	publisher Publisher,
	lockTTL, refTTL time.Duration,
) *FinalizeService {
	return &FinalizeService{
		store:     store,
		gateway:   gw,
		auth:      verifier,
		locker:    locker,
		publisher: publisher,
		logger:    util.GetLogger(),
		lockTTL:   lockTTL,
		refTTL:    refTTL,
	}
}

// Finalize runs the order finalization saga. Steps are strictly sequential;
// after the gateway confirms the payment, secondary failures degrade into
// reconciliation records instead of aborting, because a paying customer must
// end up with an order.
func (s *FinalizeService) Finalize(ctx context.Context, req *FinalizeRequest, authToken string) (*FinalizeResponse, error) {
	ctx, span := util.StartSpan(ctx, "FinalizeService.Finalize")
	defer span.End()

	start := time.Now()
	defer func() {
		util.FinalizeLatency.Observe(time.Since(start).Seconds())
	}()

	user, err := s.auth.VerifyToken(ctx, authToken)
	if err != nil {
		util.FinalizeFailedTotal.WithLabelValues("unauthorized").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if err := validateRequest(req); err != nil {
		util.FinalizeFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	lockKey := fmt.Sprintf("%s:%s", user.ID, req.Reference)
	acquired, err := s.locker.AcquireLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		// A broken lock store must not block checkouts; the unique
		// transaction reference still prevents duplicates.
		s.logger.Warn("Failed to acquire checkout lock, continuing unlocked",
			zap.String("lock_key", lockKey), zap.Error(err))
	} else if !acquired {
		util.FinalizeFailedTotal.WithLabelValues("checkout_in_progress").Inc()
		return nil, ErrCheckoutInProgress
	} else {
		defer func() {
			if err := s.locker.ReleaseLock(context.Background(), lockKey); err != nil {
				s.logger.Warn("Failed to release checkout lock",
					zap.String("lock_key", lockKey), zap.Error(err))
			}
		}()
	}

	if orderID, err := s.locker.GetSeenReference(ctx, req.Reference); err == nil && orderID != "" {
		util.DuplicateReferencesTotal.Inc()
		s.logger.Info("Reference already settled, replaying cached order",
			zap.String("reference", req.Reference),
			zap.String("order_id", orderID))
		return &FinalizeResponse{OrderID: orderID}, nil
	}

	result, err := s.gateway.VerifyTransaction(ctx, req.Reference)
	if err != nil {
		if errors.Is(err, gateway.ErrSecretMissing) {
			util.FinalizeFailedTotal.WithLabelValues("configuration").Inc()
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		util.PaymentVerificationFailedTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPaymentVerificationFailed, err)
	}
	if !result.Success() {
		util.PaymentVerificationFailedTotal.WithLabelValues("not_successful").Inc()
		return nil, fmt.Errorf("%w: gateway reported status %q", ErrPaymentVerificationFailed, result.Status)
	}
	util.PaymentsVerifiedTotal.Inc()

	s.logger.Info("Payment verified",
		zap.String("user_id", user.ID),
		zap.String("reference", result.Reference),
		zap.String("amount", result.Amount.String()))

	// The transaction record is written before anything else: its unique
	// reference is what turns a retried call into a replay instead of a
	// second order.
	txID, replayed, err := s.recordTransaction(ctx, user.ID, result)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return replayed, nil
	}

	if req.DiscountCode != nil && *req.DiscountCode != "" {
		s.applyDiscount(ctx, *req.DiscountCode)
	}

	items, err := s.store.GetCartItems(ctx, user.ID)
	if err != nil {
		s.logger.Error("Failed to load cart, continuing with zero items",
			zap.String("user_id", user.ID), zap.Error(err))
		items = nil
	}

	itemsCount := 0
	for _, item := range items {
		itemsCount += item.Quantity
	}

	addressMissing := false
	shippingAddress := "Address unavailable"
	if addr, err := s.store.GetAddressByID(ctx, req.AddressID, user.ID); err != nil {
		s.logger.Warn("Failed to resolve shipping address",
			zap.String("address_id", req.AddressID), zap.Error(err))
		addressMissing = true
	} else {
		shippingAddress = fmt.Sprintf("%s, %s", addr.AddressLine, addr.City)
	}

	expected := CartTotal(items).Add(DeliveryFee(req.DeliveryMethodID))
	amountMismatch := len(items) > 0 && !expected.Equal(result.Amount)
	if amountMismatch {
		s.logger.Warn("Gateway amount diverges from cart total plus delivery fee",
			zap.String("reference", result.Reference),
			zap.String("paid", result.Amount.String()),
			zap.String("expected", expected.String()))
	}

	order := &models.Order{
		UserID:               user.ID,
		TotalAmount:          result.Amount,
		Status:               models.OrderStatusPaid,
		ShippingAddressID:    req.AddressID,
		ShippingAddress:      shippingAddress,
		OrderNumber:          newOrderNumber(),
		ItemsCount:           itemsCount,
		PaymentTransactionID: txID,
		DiscountCode:         req.DiscountCode,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.FinalizeFailedTotal.WithLabelValues("order_insert").Inc()
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total_amount", order.TotalAmount.String()))

	if txID == nil {
		s.openReconciliation(ctx, order, result.Reference,
			models.ReconciliationOrderWithoutTransaction, "transaction log insert failed")
	}
	if len(items) == 0 {
		s.openReconciliation(ctx, order, result.Reference,
			models.ReconciliationZeroItemOrder, "cart was empty or unreadable at finalize time")
	}
	if addressMissing {
		s.openReconciliation(ctx, order, result.Reference,
			models.ReconciliationAddressMissing, fmt.Sprintf("address %s not found", req.AddressID))
	}
	if amountMismatch {
		s.openReconciliation(ctx, order, result.Reference,
			models.ReconciliationAmountMismatch,
			fmt.Sprintf("paid %s, cart+delivery %s", result.Amount.String(), expected.String()))
	}

	if len(items) > 0 {
		orderItems := models.OrderItemsFromCart(order.ID, items)
		if err := s.store.CreateOrderItems(ctx, orderItems); err != nil {
			// The order exists in "paid" with no lines. The cart is still
			// intact, so the repair worker can rebuild the items.
			s.openReconciliation(ctx, order, result.Reference,
				models.ReconciliationOrderWithoutItems, err.Error())
			util.FinalizeFailedTotal.WithLabelValues("order_items_insert").Inc()
			return nil, fmt.Errorf("failed to create order items: %w", err)
		}

		if err := s.store.ClearCart(ctx, user.ID); err != nil {
			s.logger.Error("Failed to clear cart after order creation",
				zap.String("order_id", order.ID), zap.Error(err))
			s.openReconciliation(ctx, order, result.Reference,
				models.ReconciliationCartNotCleared, err.Error())
		}
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Reference:   result.Reference,
		TotalAmount: order.TotalAmount,
		ItemsCount:  order.ItemsCount,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	if err := s.locker.MarkReferenceSeen(ctx, result.Reference, order.ID, s.refTTL); err != nil {
		s.logger.Warn("Failed to cache settled reference", zap.Error(err))
	}

	util.OrdersFinalizedTotal.Inc()
	return &FinalizeResponse{OrderID: order.ID}, nil
}

// recordTransaction inserts the payment audit row. On a reference conflict it
// resolves the existing order (retry replay) or hands back the previous
// transaction id so an interrupted saga can resume. A non-conflict failure is
// soft: the order is still created, with a nil transaction link.
func (s *FinalizeService) recordTransaction(ctx context.Context, userID string, result *gateway.VerifyResult) (*string, *FinalizeResponse, error) {
	tx := &models.PaymentTransaction{
		UserID:           userID,
		Amount:           result.Amount,
		Reference:        result.Reference,
		Status:           models.TransactionStatusSuccess,
		Provider:         models.PaymentProvider,
		ProviderResponse: types.JSONText(result.Raw),
	}

	inserted, err := s.store.CreatePaymentTransaction(ctx, tx)
	if err != nil {
		s.logger.Error("Failed to log payment transaction, continuing without link",
			zap.String("reference", result.Reference), zap.Error(err))
		return nil, nil, nil
	}

	if inserted {
		return &tx.ID, nil, nil
	}

	existing, err := s.store.GetOrderByReference(ctx, result.Reference)
	if err != nil {
		return nil, nil, fmt.Errorf("reference already recorded but order lookup failed: %w", err)
	}
	if existing != nil {
		util.DuplicateReferencesTotal.Inc()
		s.logger.Info("Reference already settled, returning existing order",
			zap.String("reference", result.Reference),
			zap.String("order_id", existing.ID))
		if err := s.locker.MarkReferenceSeen(ctx, result.Reference, existing.ID, s.refTTL); err != nil {
			s.logger.Warn("Failed to cache settled reference", zap.Error(err))
		}
		return nil, &FinalizeResponse{OrderID: existing.ID}, nil
	}

	// A previous attempt wrote the transaction but died before the order
	// insert. Resume with the existing row.
	prev, err := s.store.GetPaymentTransactionByReference(ctx, result.Reference)
	if err != nil || prev == nil {
		s.logger.Error("Conflicting reference has no retrievable transaction",
			zap.String("reference", result.Reference), zap.Error(err))
		return nil, nil, nil
	}
	return &prev.ID, nil, nil
}

// applyDiscount redeems the code best-effort. An unknown, inactive, expired
// or capped code never aborts order creation.
func (s *FinalizeService) applyDiscount(ctx context.Context, code string) {
	redeemed, err := s.store.RedeemDiscount(ctx, code)
	if err != nil {
		util.DiscountRejectionsTotal.WithLabelValues("store_error").Inc()
		s.logger.Error("Discount redemption failed", zap.String("code", code), zap.Error(err))
		return
	}
	if !redeemed {
		util.DiscountRejectionsTotal.WithLabelValues("invalid_or_exhausted").Inc()
		s.logger.Warn("Discount code not applied", zap.String("code", code))
		return
	}
	util.DiscountsRedeemedTotal.Inc()
	s.logger.Info("Discount redeemed", zap.String("code", code))
}

func (s *FinalizeService) openReconciliation(ctx context.Context, order *models.Order, reference, kind, detail string) {
	rec := &models.Reconciliation{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Reference: reference,
		Kind:      kind,
		Detail:    detail,
	}
	if err := s.store.CreateReconciliation(ctx, rec); err != nil {
		s.logger.Error("Failed to persist reconciliation record",
			zap.String("order_id", order.ID),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}

	util.ReconciliationsOpenedTotal.WithLabelValues(kind).Inc()
	s.logger.Warn("Reconciliation opened",
		zap.String("order_id", order.ID),
		zap.String("kind", kind),
		zap.String("detail", detail))

	event := &models.ReconciliationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReconciliationOpened,
			Timestamp: time.Now(),
		},
		ReconciliationID: rec.ID,
		OrderID:          order.ID,
		UserID:           order.UserID,
		Reference:        reference,
		Kind:             kind,
		Detail:           detail,
	}
	if err := s.publisher.PublishReconciliationOpened(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReconciliationOpened event", zap.Error(err))
	}
}

func validateRequest(req *FinalizeRequest) error {
	switch {
	case req.Reference == "":
		return fmt.Errorf("%w: reference is required", ErrInvalidRequest)
	case req.DeliveryMethodID == "":
		return fmt.Errorf("%w: deliveryMethodId is required", ErrInvalidRequest)
	case req.AddressID == "":
		return fmt.Errorf("%w: addressId is required", ErrInvalidRequest)
	}
	return nil
}

func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), strings.ToUpper(uuid.New().String()[:4]))
}
