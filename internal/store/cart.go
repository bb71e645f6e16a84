package store

import (
	"context"

	"checkout-service/internal/models"
)

// GetCartItems reads the user's cart joined with product and variant columns.
// Variant columns are coalesced so rows without a variant scan cleanly.
func (s *Store) GetCartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT ci.id, ci.user_id, ci.product_id, ci.variant_id, ci.quantity,
		       p.name AS product_name,
		       p.price AS product_price,
		       p.image_url AS product_image,
		       COALESCE(v.name, '') AS variant_name,
		       COALESCE(v.value, '') AS variant_value,
		       COALESCE(v.price_impact, 0) AS variant_price_impact
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at`,
		userID)
	return items, err
}

// ClearCart removes every cart row for the user.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return err
}
