package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// PaymentTransaction is the append-only audit record of a verified gateway
// payment. Reference is unique: inserting the same reference twice is how a
// retried finalize call is detected.
type PaymentTransaction struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Reference        string          `db:"reference" json:"reference"`
	Status           string          `db:"status" json:"status"`
	Provider         string          `db:"provider" json:"provider"`
	ProviderResponse types.JSONText  `db:"provider_response" json:"provider_response,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// Discount is a redeemable code. UsedCount is only ever moved by the
// conditional redeem statement, never by a read-then-write.
type Discount struct {
	ID        string     `db:"id" json:"id"`
	Code      string     `db:"code" json:"code"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	MaxUses   *int       `db:"max_uses" json:"max_uses,omitempty"`
	UsedCount int        `db:"used_count" json:"used_count"`
}

// CartItem is a cart row joined with its product and (optional) variant.
// Variant columns are coalesced to zero values for items without a variant.
type CartItem struct {
	ID                 string          `db:"id" json:"id"`
	UserID             string          `db:"user_id" json:"user_id"`
	ProductID          string          `db:"product_id" json:"product_id"`
	VariantID          *string         `db:"variant_id" json:"variant_id,omitempty"`
	Quantity           int             `db:"quantity" json:"quantity"`
	ProductName        string          `db:"product_name" json:"product_name"`
	ProductPrice       decimal.Decimal `db:"product_price" json:"product_price"`
	ProductImage       string          `db:"product_image" json:"product_image"`
	VariantName        string          `db:"variant_name" json:"variant_name,omitempty"`
	VariantValue       string          `db:"variant_value" json:"variant_value,omitempty"`
	VariantPriceImpact decimal.Decimal `db:"variant_price_impact" json:"variant_price_impact"`
}

// UnitPrice is the per-unit price of the line: base product price plus the
// variant's price impact.
func (ci CartItem) UnitPrice() decimal.Decimal {
	return ci.ProductPrice.Add(ci.VariantPriceImpact)
}

// ShippingAddress is a stored delivery address.
type ShippingAddress struct {
	ID          string `db:"id" json:"id"`
	UserID      string `db:"user_id" json:"user_id"`
	AddressLine string `db:"address_line" json:"address_line"`
	City        string `db:"city" json:"city"`
}

// Order is a finalized purchase. TotalAmount is the gateway-verified amount,
// not a recomputed cart total.
type Order struct {
	ID                   string          `db:"id" json:"id"`
	UserID               string          `db:"user_id" json:"user_id"`
	TotalAmount          decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status               string          `db:"status" json:"status"`
	ShippingAddressID    string          `db:"shipping_address_id" json:"shipping_address_id"`
	ShippingAddress      string          `db:"shipping_address" json:"shipping_address"`
	OrderNumber          string          `db:"order_number" json:"order_number"`
	ItemsCount           int             `db:"items_count" json:"items_count"`
	PaymentTransactionID *string         `db:"payment_transaction_id" json:"payment_transaction_id,omitempty"`
	DiscountCode         *string         `db:"discount_code" json:"discount_code,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order, denormalized from the cart at finalize
// time so later product edits cannot rewrite purchase history.
type OrderItem struct {
	ID          string          `db:"id" json:"id"`
	OrderID     string          `db:"order_id" json:"order_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	VariantID   *string         `db:"variant_id" json:"variant_id,omitempty"`
	VariantName *string         `db:"variant_name" json:"variant_name,omitempty"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// OrderItemsFromCart denormalizes cart lines into order items for one order.
// Unit price is the base product price plus the variant price impact.
func OrderItemsFromCart(orderID string, items []CartItem) []OrderItem {
	orderItems := make([]OrderItem, 0, len(items))
	for _, item := range items {
		var variantName *string
		if item.VariantID != nil {
			name := item.VariantName
			if item.VariantValue != "" {
				name = item.VariantName + ": " + item.VariantValue
			}
			variantName = &name
		}
		orderItems = append(orderItems, OrderItem{
			OrderID:     orderID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			VariantName: variantName,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.UnitPrice(),
		})
	}
	return orderItems
}

// Reconciliation records a degraded finalize outcome that a background
// worker (or a human) can repair later.
type Reconciliation struct {
	ID         string     `db:"id" json:"id"`
	OrderID    string     `db:"order_id" json:"order_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Reference  string     `db:"reference" json:"reference"`
	Kind       string     `db:"kind" json:"kind"`
	Detail     string     `db:"detail" json:"detail"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment transaction statuses and provider
const (
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
	PaymentProvider          = "paystack"
)

// Reconciliation kinds
const (
	ReconciliationOrderWithoutTransaction = "order_without_transaction"
	ReconciliationOrderWithoutItems       = "order_without_items"
	ReconciliationZeroItemOrder           = "zero_item_order"
	ReconciliationCartNotCleared          = "cart_not_cleared"
	ReconciliationAmountMismatch          = "amount_mismatch"
	ReconciliationAddressMissing          = "address_missing"
)

// Reconciliation statuses
const (
	ReconciliationStatusPending  = "pending"
	ReconciliationStatusResolved = "resolved"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
