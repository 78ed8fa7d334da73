// Package chit implements the chit-fund engine: the pool registry and
// the sealed-bid commit-reveal auction state machine, coupled to the
// reputation scorer through credit-gated eligibility checks. All state
// lives in arena maps keyed by monotonically increasing ids; every
// operation either fully applies or fails before any observable
// mutation.
package chit

import (
	"fmt"

	"github.com/creditmesh/chitengine/internal/access"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
	"github.com/creditmesh/chitengine/internal/reputation"
	"github.com/creditmesh/chitengine/internal/trust"
)

// Params are the engine's immutable configuration, fixed at construction.
type Params struct {
	// PoolSizeCap is the size above which auction creation additionally
	// requires the operator's credit score to clear MinCreditForLarge.
	PoolSizeCap fixed.Num

	// MinCreditForLarge gates large-pool auction creation and doubles as
	// the winner-bonus threshold, as in the original system.
	MinCreditForLarge fixed.Num

	// MinOperatorRating is the minimum pool rating for any auction.
	MinOperatorRating uint8

	// BonusAmount is the fixed bonus paid from the fund account to a
	// winner whose credit score clears MinCreditForLarge.
	BonusAmount fixed.Num

	// FundAccount is the engine's own account on the external token
	// ledger, the source of bonus payments.
	FundAccount domain.Account
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	scale := fixed.Scale()
	if p.MinCreditForLarge.Gt(&scale) {
		return fmt.Errorf("chit: min credit for large %s exceeds scale", p.MinCreditForLarge.Dec())
	}
	if p.PoolSizeCap.IsZero() {
		return fmt.Errorf("chit: pool size cap is zero")
	}
	return nil
}

// Engine is the deterministic core. It owns pools and auctions by value,
// consults the scorer and gate read-only during eligibility checks, and
// settles bonuses against the external token ledger. Not safe for
// concurrent use; callers must serialize all operations.
type Engine struct {
	params    Params
	gate      *access.Gate
	graph     *trust.Graph
	scorer    *reputation.Scorer
	token     domain.TokenLedger
	protocols domain.ProtocolCaller
	sink      domain.EventSink

	pools    map[uint64]*domain.Pool
	auctions map[uint64]*domain.Auction

	// Id counters start at 1 and are never reused. The auction counter
	// is global, independent of pool ids.
	nextPoolID    uint64
	nextAuctionID uint64
}

// New assembles an Engine from its collaborators.
func New(
	params Params,
	gate *access.Gate,
	graph *trust.Graph,
	scorer *reputation.Scorer,
	token domain.TokenLedger,
	protocols domain.ProtocolCaller,
	sink domain.EventSink,
) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Engine{
		params:        params,
		gate:          gate,
		graph:         graph,
		scorer:        scorer,
		token:         token,
		protocols:     protocols,
		sink:          sink,
		pools:         make(map[uint64]*domain.Pool),
		auctions:      make(map[uint64]*domain.Auction),
		nextPoolID:    1,
		nextAuctionID: 1,
	}, nil
}

// Params returns the immutable engine configuration.
func (e *Engine) Params() Params {
	return e.params
}

// Gate exposes the access gate for admin operations.
func (e *Engine) Gate() *access.Gate {
	return e.gate
}

// Scorer exposes the reputation scorer's read surface.
func (e *Engine) Scorer() *reputation.Scorer {
	return e.scorer
}

// Graph exposes the trust graph's read surface.
func (e *Engine) Graph() *trust.Graph {
	return e.graph
}

// SetTrust records a trust edge from the caller. Oracle capability
// required.
func (e *Engine) SetTrust(caller, to domain.Account, weight fixed.Num) error {
	if err := e.gate.Require(caller, domain.RoleOracle); err != nil {
		return err
	}
	return e.graph.SetTrust(caller, to, weight)
}

// RecordOutcome records a success or failure observation. Oracle
// capability required.
func (e *Engine) RecordOutcome(caller, account domain.Account, success bool) error {
	if err := e.gate.Require(caller, domain.RoleOracle); err != nil {
		return err
	}
	return e.scorer.RecordOutcome(account, success)
}

// RecordPaymentStats records a payment observation. Oracle capability
// required.
func (e *Engine) RecordPaymentStats(caller, account domain.Account, onTime bool, delaySeconds uint64) error {
	if err := e.gate.Require(caller, domain.RoleOracle); err != nil {
		return err
	}
	return e.scorer.RecordPaymentStats(account, onTime, delaySeconds)
}
