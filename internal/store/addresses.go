package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// GetAddressByID retrieves a shipping address owned by the user.
func (s *Store) GetAddressByID(ctx context.Context, id, userID string) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	err := s.db.GetContext(ctx, &addr,
		"SELECT * FROM shipping_addresses WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shipping address not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
