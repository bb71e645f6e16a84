package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// CreatePaymentTransaction inserts the audit record for a verified payment.
// The reference column is unique; a conflicting insert leaves the table
// untouched and returns inserted=false, which is how a retried finalize call
// for an already-settled reference is detected.
func (s *Store) CreatePaymentTransaction(ctx context.Context, tx *models.PaymentTransaction) (bool, error) {
	query := `
		INSERT INTO payment_transactions (user_id, amount, reference, status, provider, provider_response)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reference) DO NOTHING
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		tx.UserID, tx.Amount, tx.Reference, tx.Status, tx.Provider, tx.ProviderResponse).
		Scan(&tx.ID, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetPaymentTransactionByReference retrieves the transaction for a gateway
// reference, or nil when none exists.
func (s *Store) GetPaymentTransactionByReference(ctx context.Context, reference string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := s.db.GetContext(ctx, &tx,
		"SELECT * FROM payment_transactions WHERE reference = $1", reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetOrderByReference finds the order linked to a payment reference, or nil
// when the reference has no order yet.
func (s *Store) GetOrderByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT o.* FROM orders o
		JOIN payment_transactions t ON t.id = o.payment_transaction_id
		WHERE t.reference = $1`,
		reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order by reference: %w", err)
	}
	return &order, nil
}
