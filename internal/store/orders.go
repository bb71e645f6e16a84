package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// CreateOrder inserts a new order and fills in the generated id and
// timestamps.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, total_amount, status, shipping_address_id,
		                    shipping_address, order_number, items_count,
		                    payment_transaction_id, discount_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		order.UserID, order.TotalAmount, order.Status, order.ShippingAddressID,
		order.ShippingAddress, order.OrderNumber, order.ItemsCount,
		order.PaymentTransactionID, order.DiscountCode).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrderItems inserts all line items of an order in one statement.
func (s *Store) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO order_items (order_id, product_id, variant_id, variant_name,
		                         product_name, quantity, price)
		VALUES (:order_id, :product_id, :variant_id, :variant_name,
		        :product_name, :quantity, :price)`,
		items)
	if err != nil {
		return fmt.Errorf("failed to insert order items: %w", err)
	}
	return nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// LinkPaymentTransaction attaches a transaction record to an order that was
// created without one.
func (s *Store) LinkPaymentTransaction(ctx context.Context, orderID, transactionID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_transaction_id = $1, updated_at = NOW() WHERE id = $2",
		transactionID, orderID)
	return err
}

// UpdateOrderItemsCount rewrites the denormalized item count on an order.
func (s *Store) UpdateOrderItemsCount(ctx context.Context, orderID string, count int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET items_count = $1, updated_at = NOW() WHERE id = $2",
		count, orderID)
	return err
}
