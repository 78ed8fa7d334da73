package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditmesh/chitengine/internal/domain"
)

// JournalStore implements domain.JournalStore using PostgreSQL.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

// Append inserts all entries of one operation in a single batch.
func (s *JournalStore) Append(ctx context.Context, entries []domain.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO event_journal (op_id, seq, kind, payload, logical_ts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (op_id, seq) DO NOTHING`
	for _, e := range entries {
		batch.Queue(query, e.OpID, e.Seq, e.Kind, e.Payload, int64(e.LogicalTS), e.CreatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: append journal: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recent entries, newest first.
func (s *JournalStore) ListRecent(ctx context.Context, limit int) ([]domain.JournalEntry, error) {
	const query = `
		SELECT op_id, seq, kind, payload, logical_ts, created_at
		FROM event_journal
		ORDER BY id DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list journal: %w", err)
	}
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var (
			e  domain.JournalEntry
			ts int64
		)
		if err := rows.Scan(&e.OpID, &e.Seq, &e.Kind, &e.Payload, &ts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan journal entry: %w", err)
		}
		e.LogicalTS = uint64(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate journal: %w", err)
	}
	return out, nil
}
