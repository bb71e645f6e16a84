package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// GetDiscountByCode retrieves a discount by its code, case-insensitively.
func (s *Store) GetDiscountByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := s.db.GetContext(ctx, &discount,
		"SELECT id, code, is_active, expires_at, max_uses, used_count FROM discounts WHERE UPPER(code) = UPPER($1)",
		code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discount not found: %s", code)
	}
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// RedeemDiscount increments used_count for a matching code if and only if the
// discount is still valid at this instant. The active, expiry and cap checks
// live inside the UPDATE so concurrent redemptions cannot overrun max_uses.
// Returns false when the code is unknown or failed any check.
func (s *Store) RedeemDiscount(ctx context.Context, code string) (bool, error) {
	var usedCount int
	err := s.db.GetContext(ctx, &usedCount, `
		UPDATE discounts
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE UPPER(code) = UPPER($1)
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > NOW())
		  AND (max_uses IS NULL OR used_count < max_uses)
		RETURNING used_count`,
		code)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
