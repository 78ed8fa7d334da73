package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JournalEntry is one journaled engine event: an append-only audit record
// ordered by Seq within the operation identified by OpID.
type JournalEntry struct {
	OpID      uuid.UUID
	Seq       int
	Kind      string
	Payload   []byte // JSON-encoded event
	LogicalTS Timestamp
	CreatedAt time.Time
}

// JournalStore persists engine events. Append-only.
type JournalStore interface {
	Append(ctx context.Context, entries []JournalEntry) error
	ListRecent(ctx context.Context, limit int) ([]JournalEntry, error)
}

// AuctionArchiveStore records a flattened row per closed auction for
// reporting queries that should not touch the live engine.
type AuctionArchiveStore interface {
	Insert(ctx context.Context, a Auction, closedAt Timestamp) error
}

// ScoreSnapshot is a cached credit-score breakdown for one account.
type ScoreSnapshot struct {
	Account      Account `json:"account"`
	Credit       string  `json:"credit"`
	Bayesian     string  `json:"bayesian"`
	PaymentFreq  string  `json:"payment_frequency"`
	InverseDelay string  `json:"inverse_delay"`
	PageRank     string  `json:"page_rank"`
}

// ScoreCache caches score snapshots with a short TTL and supports
// invalidation when oracle writes touch an account.
type ScoreCache interface {
	Get(ctx context.Context, account Account) (ScoreSnapshot, bool, error)
	Set(ctx context.Context, snap ScoreSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, accounts ...Account) error
}

// SignalBus publishes engine events to interested consumers (WebSocket
// hub, external subscribers) and appends them to a durable stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// RateLimiter gates requests per key inside a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// AuctionArchiver writes a full closed-auction record to blob storage.
// Best-effort; failures are logged, never block closing.
type AuctionArchiver interface {
	ArchiveAuction(ctx context.Context, a Auction) error
}
