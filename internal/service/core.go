// Package service wraps the deterministic engine in a single-writer
// apply loop: one mutex serializes every mutating call, the logical
// clock is sampled exactly once per operation, and the events each
// operation emits are journaled and fanned out after the mutation
// commits.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creditmesh/chitengine/internal/chit"
	"github.com/creditmesh/chitengine/internal/domain"
)

// EventCapture buffers events emitted by the core during one operation.
// It is the sink wired into every core component; the apply loop drains
// it under the same lock that serializes mutation.
type EventCapture struct {
	events []domain.Event
}

// NewEventCapture creates an empty capture sink.
func NewEventCapture() *EventCapture {
	return &EventCapture{}
}

// Emit implements domain.EventSink.
func (c *EventCapture) Emit(e domain.Event) {
	c.events = append(c.events, e)
}

func (c *EventCapture) drain() []domain.Event {
	out := c.events
	c.events = nil
	return out
}

// Core owns the engine and its side-effect plumbing. Journal, bus,
// score cache, and archiver are optional; a nil field disables that
// concern.
type Core struct {
	mu      sync.Mutex
	engine  *chit.Engine
	capture *EventCapture
	clock   domain.Clock

	journal  domain.JournalStore
	bus      domain.SignalBus
	scores   domain.ScoreCache
	archive  domain.AuctionArchiveStore
	archiver domain.AuctionArchiver

	logger *slog.Logger
}

// CoreOptions holds the optional side-effect collaborators.
type CoreOptions struct {
	Journal  domain.JournalStore
	Bus      domain.SignalBus
	Scores   domain.ScoreCache
	Archive  domain.AuctionArchiveStore
	Archiver domain.AuctionArchiver
}

// NewCore wires the apply loop around an engine. The capture sink must
// be the same sink the engine and its components were constructed with.
func NewCore(engine *chit.Engine, capture *EventCapture, clock domain.Clock, opts CoreOptions, logger *slog.Logger) *Core {
	if clock == nil {
		clock = domain.WallClock{}
	}
	return &Core{
		engine:   engine,
		capture:  capture,
		clock:    clock,
		journal:  opts.Journal,
		bus:      opts.Bus,
		scores:   opts.Scores,
		archive:  opts.Archive,
		archiver: opts.Archiver,
		logger:   logger.With(slog.String("component", "engine_core")),
	}
}

// Engine exposes the underlying engine for read-only queries. Reads are
// safe under the same lock; use View for consistency.
func (c *Core) Engine() *chit.Engine {
	return c.engine
}

// apply runs fn under the write lock with a single clock sample, then
// flushes the captured events. fn must only mutate through the engine.
func (c *Core) apply(ctx context.Context, touched []domain.Account, fn func(now domain.Timestamp) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.capture.drain() // defensive reset; failed ops may leave nothing behind anyway

	if err := fn(now); err != nil {
		c.capture.drain()
		return err
	}

	events := c.capture.drain()
	c.flush(ctx, now, events)
	c.invalidateScores(ctx, touched)
	return nil
}

// View runs fn under the lock for a consistent read of engine state.
func (c *Core) View(fn func(e *chit.Engine, now domain.Timestamp) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.engine, c.clock.Now())
}

// flush journals and publishes the events of one committed operation.
// Side-effect failures are logged, never surfaced: the mutation has
// already committed and must not appear to roll back.
func (c *Core) flush(ctx context.Context, now domain.Timestamp, events []domain.Event) {
	if len(events) == 0 {
		return
	}

	opID := uuid.New()
	entries := make([]domain.JournalEntry, 0, len(events))
	for i, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			c.logger.ErrorContext(ctx, "marshal event",
				slog.String("kind", ev.Kind()),
				slog.String("error", err.Error()),
			)
			continue
		}
		entries = append(entries, domain.JournalEntry{
			OpID:      opID,
			Seq:       i,
			Kind:      ev.Kind(),
			Payload:   payload,
			LogicalTS: now,
			CreatedAt: time.Now().UTC(),
		})
	}

	if c.journal != nil && len(entries) > 0 {
		if err := c.journal.Append(ctx, entries); err != nil {
			c.logger.ErrorContext(ctx, "journal append", slog.String("error", err.Error()))
		}
	}

	if c.bus != nil {
		for _, entry := range entries {
			channel := channelFor(entry.Kind)
			if err := c.bus.Publish(ctx, channel, entry.Payload); err != nil {
				c.logger.WarnContext(ctx, "publish event",
					slog.String("channel", channel),
					slog.String("error", err.Error()),
				)
			}
			if err := c.bus.StreamAppend(ctx, eventStream, entry.Payload); err != nil {
				c.logger.WarnContext(ctx, "stream append", slog.String("error", err.Error()))
			}
		}
	}
}

func (c *Core) invalidateScores(ctx context.Context, touched []domain.Account) {
	if c.scores == nil || len(touched) == 0 {
		return
	}
	if err := c.scores.Invalidate(ctx, touched...); err != nil {
		c.logger.WarnContext(ctx, "invalidate score cache", slog.String("error", err.Error()))
	}
}

// eventStream is the durable Redis stream all events are appended to.
const eventStream = "chit:events"

// channelFor maps an event kind to its pub/sub channel.
func channelFor(kind string) string {
	switch kind {
	case "trust_changed", "outcome_recorded", "payment_recorded":
		return "chit:trust"
	case "pool_created", "premium_deposited":
		return "chit:pool"
	case "role_granted", "role_revoked", "protocol_allowlisted":
		return "chit:admin"
	default:
		return "chit:auction"
	}
}
