package store

import (
	"context"

	"checkout-service/internal/models"
)

// CreateReconciliation opens a pending reconciliation record.
func (s *Store) CreateReconciliation(ctx context.Context, rec *models.Reconciliation) error {
	query := `
		INSERT INTO reconciliations (order_id, user_id, reference, kind, detail, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.QueryRowxContext(ctx, query,
		rec.OrderID, rec.UserID, rec.Reference, rec.Kind, rec.Detail,
		models.ReconciliationStatusPending).
		Scan(&rec.ID, &rec.CreatedAt)
}

// ResolveReconciliation marks a reconciliation record as repaired.
func (s *Store) ResolveReconciliation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE reconciliations SET status = $1, resolved_at = NOW() WHERE id = $2",
		models.ReconciliationStatusResolved, id)
	return err
}

// GetPendingReconciliations lists unrepaired records, oldest first.
func (s *Store) GetPendingReconciliations(ctx context.Context, limit int) ([]models.Reconciliation, error) {
	var recs []models.Reconciliation
	err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM reconciliations WHERE status = $1 ORDER BY created_at LIMIT $2",
		models.ReconciliationStatusPending, limit)
	return recs, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
