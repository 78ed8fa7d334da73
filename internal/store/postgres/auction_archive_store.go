package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditmesh/chitengine/internal/domain"
)

// AuctionArchiveStore implements domain.AuctionArchiveStore using
// PostgreSQL: one flattened row per closed auction.
type AuctionArchiveStore struct {
	pool *pgxpool.Pool
}

// NewAuctionArchiveStore creates an AuctionArchiveStore backed by the
// given pool.
func NewAuctionArchiveStore(pool *pgxpool.Pool) *AuctionArchiveStore {
	return &AuctionArchiveStore{pool: pool}
}

// Insert records a closed auction. Re-inserting the same auction id is
// a no-op so a crashed archive pass can be retried safely.
func (s *AuctionArchiveStore) Insert(ctx context.Context, a domain.Auction, closedAt domain.Timestamp) error {
	const query = `
		INSERT INTO auction_archive (
			auction_id, pool_id, bid_end, reveal_end, closed_at,
			winner, winning_amount, bonus_paid, commit_count, reveal_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (auction_id) DO NOTHING`

	var winner *string
	if a.Winner != nil {
		hex := a.Winner.Hex()
		winner = &hex
	}

	_, err := s.pool.Exec(ctx, query,
		int64(a.ID), int64(a.PoolID), int64(a.BidEnd), int64(a.RevealEnd), int64(closedAt),
		winner, a.WinningAmount.Dec(), a.BonusPaid, len(a.Commits), len(a.Reveals),
	)
	if err != nil {
		return fmt.Errorf("postgres: archive auction %d: %w", a.ID, err)
	}
	return nil
}
