package domain

import "github.com/creditmesh/chitengine/internal/fixed"

// Event is implemented by every engine event. Kind is a stable string
// used as the journal type column and the pub/sub routing key suffix.
type Event interface {
	Kind() string
}

// EventSink receives events emitted by the deterministic core immediately
// after the corresponding state mutation. Implementations must not fail;
// fan-out and journaling happen in the service shell.
type EventSink interface {
	Emit(Event)
}

// NopSink discards all events. Used by tests and standalone core usage.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// RecordingSink appends every event in order. Test helper.
type RecordingSink struct {
	Events []Event
}

func (s *RecordingSink) Emit(e Event) { s.Events = append(s.Events, e) }

type TrustChangedEvent struct {
	From   Account
	To     Account
	Weight fixed.Num
}

func (TrustChangedEvent) Kind() string { return "trust_changed" }

type OutcomeRecordedEvent struct {
	Account Account
	Success bool
}

func (OutcomeRecordedEvent) Kind() string { return "outcome_recorded" }

type PaymentRecordedEvent struct {
	Account      Account
	OnTime       bool
	DelaySeconds uint64
}

func (PaymentRecordedEvent) Kind() string { return "payment_recorded" }

type RoleGrantedEvent struct {
	Account Account
	Role    Role
}

func (RoleGrantedEvent) Kind() string { return "role_granted" }

type RoleRevokedEvent struct {
	Account Account
	Role    Role
}

func (RoleRevokedEvent) Kind() string { return "role_revoked" }

type ProtocolAllowlistedEvent struct {
	Protocol Account
	Allowed  bool
}

func (ProtocolAllowlistedEvent) Kind() string { return "protocol_allowlisted" }

type PoolCreatedEvent struct {
	PoolID   uint64
	Operator Account
	Size     fixed.Num
	Rating   uint8
}

func (PoolCreatedEvent) Kind() string { return "pool_created" }

type PremiumDepositedEvent struct {
	PoolID    uint64
	Depositor Account
	Value     fixed.Num
}

func (PremiumDepositedEvent) Kind() string { return "premium_deposited" }

type AuctionCreatedEvent struct {
	AuctionID uint64
	PoolID    uint64
	BidEnd    Timestamp
	RevealEnd Timestamp
}

func (AuctionCreatedEvent) Kind() string { return "auction_created" }

type BidCommittedEvent struct {
	AuctionID uint64
	Bidder    Account
}

func (BidCommittedEvent) Kind() string { return "bid_committed" }

type BidRevealedEvent struct {
	AuctionID uint64
	Bidder    Account
	Amount    fixed.Num
}

func (BidRevealedEvent) Kind() string { return "bid_revealed" }

type AuctionClosedEvent struct {
	AuctionID uint64
	Winner    *Account
	Amount    fixed.Num
	Bonus     fixed.Num
}

func (AuctionClosedEvent) Kind() string { return "auction_closed" }
