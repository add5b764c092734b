// Package history records the immutable audit trail for buyer leads. Writes
// happen inside the repository's transaction; reads go through Service.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Action markers for entries that snapshot a whole record instead of a diff.
const (
	ActionCreated  = "created"
	ActionImported = "imported"
)

// FieldChange is one side-by-side value pair in an update diff.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Entry is one immutable audit record for a lead.
type Entry struct {
	ID        string          `json:"id"`
	BuyerID   string          `json:"buyerId"`
	ChangedBy string          `json:"changedBy"`
	ChangedAt time.Time       `json:"changedAt"`
	Diff      json.RawMessage `json:"diff"`
}

// snapshot is the diff payload for created and imported entries.
type snapshot struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// NewSnapshot builds an entry that records a whole new lead, used for the
// "created" and "imported" actions.
func NewSnapshot(action, buyerID, actor string, data any) (Entry, error) {
	payload, err := json.Marshal(snapshot{Action: action, Data: data})
	if err != nil {
		return Entry{}, fmt.Errorf("history: marshal %s snapshot: %w", action, err)
	}
	return newEntry(buyerID, actor, payload), nil
}

// NewFieldDiff builds an entry recording which fields changed on an update.
// Callers must not append an entry for an empty change set.
func NewFieldDiff(buyerID, actor string, changes map[string]FieldChange) (Entry, error) {
	payload, err := json.Marshal(changes)
	if err != nil {
		return Entry{}, fmt.Errorf("history: marshal field diff: %w", err)
	}
	return newEntry(buyerID, actor, payload), nil
}

func newEntry(buyerID, actor string, payload json.RawMessage) Entry {
	return Entry{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		ChangedBy: actor,
		ChangedAt: time.Now().UTC(),
		Diff:      payload,
	}
}

// Execer is the slice of pgx.Tx the writer needs, so entries land in the same
// transaction as the lead mutation they describe.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Append inserts the entry using the caller's transaction.
func Append(ctx context.Context, tx Execer, e Entry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO buyer_history (id, buyer_id, changed_by, changed_at, diff)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.BuyerID, e.ChangedBy, e.ChangedAt, e.Diff)
	if err != nil {
		return fmt.Errorf("history: insert entry: %w", err)
	}
	return nil
}
