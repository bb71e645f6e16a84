package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced          = "ORDER_PLACED"
	EventTypeReconciliationOpened = "RECONCILIATION_OPENED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after a verified payment has been turned
// into an order. Downstream consumers (notifications, analytics) key off it.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	Reference   string          `json:"reference"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemsCount  int             `json:"items_count"`
}

// ReconciliationEvent is published whenever a finalize call completes in a
// degraded state. The repair worker consumes these.
type ReconciliationEvent struct {
	BaseEvent
	ReconciliationID string `json:"reconciliation_id"`
	OrderID          string `json:"order_id"`
	UserID           string `json:"user_id"`
	Reference        string `json:"reference"`
	Kind             string `json:"kind"`
	Detail           string `json:"detail,omitempty"`
}
