package history

import (
	"context"
	"database/sql"
	"fmt"
)

// Service is the read side of the audit trail.
type Service struct {
	db *sql.DB
}

// NewService creates a new history read service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ListForBuyer returns the entries for one lead, newest first. The join on
// buyers enforces the owner scope even if the caller skipped its own check.
func (s *Service) ListForBuyer(ctx context.Context, buyerID, ownerID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.buyer_id, h.changed_by, h.changed_at, h.diff
		FROM buyer_history h
		JOIN buyers b ON b.id = h.buyer_id
		WHERE h.buyer_id = $1 AND b.owner_id = $2
		ORDER BY h.changed_at DESC`,
		buyerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("history: query entries: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.ChangedBy, &e.ChangedAt, &e.Diff); err != nil {
			return nil, fmt.Errorf("history: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
