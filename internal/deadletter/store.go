// Package deadletter records work items whose function panicked, for
// operational audit. The core workqueue has no notion of failure — a
// WorkFunc either completes or panics — so cmd/server wraps every
// registered function with a recover() that reports here. This is not
// a persistent queue: the pipe remains the sole in-flight queue, and a
// panicking item is already lost to Submit's fire-and-forget contract
// by the time this store ever sees it.
package deadletter

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"workqueue/internal/db"
)

type Record struct {
	ID         uuid.UUID
	Name       string
	PayloadB64 string
	Reason     string
	OccurredAt time.Time
}

type Store struct {
	db *db.PostgresDB
}

func NewStore(database *db.PostgresDB) *Store {
	return &Store{db: database}
}

// Record inserts a dead-letter entry for a panicking invocation of the
// work function name, with the caller-supplied payload bytes
// (base64-encoded; cmd/server passes the argument's JSON encoding) and
// the recovered panic value rendered as a string.
func (s *Store) Record(ctx context.Context, name string, payload []byte, reason string) error {
	rec := Record{
		ID:         uuid.New(),
		Name:       name,
		PayloadB64: base64.StdEncoding.EncodeToString(payload),
		Reason:     reason,
		OccurredAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dead_letters (id, name, payload_b64, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Name, rec.PayloadB64, rec.Reason, rec.OccurredAt)
	if err != nil {
		return fmt.Errorf("deadletter: insert: %w", err)
	}
	return nil
}

// List returns the most recent dead letters, newest first, for the
// admin API.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, payload_b64, reason, occurred_at
		FROM dead_letters
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("deadletter: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Name, &r.PayloadB64, &r.Reason, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("deadletter: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
