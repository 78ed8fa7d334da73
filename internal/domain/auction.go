package domain

import "github.com/creditmesh/chitengine/internal/fixed"

// AuctionPhase is the derived lifecycle phase of an auction. Only the
// closed flag is stored; bidding vs reveal membership is computed from
// the logical clock against the two deadlines.
type AuctionPhase string

const (
	PhaseBidding AuctionPhase = "bidding"
	PhaseReveal  AuctionPhase = "reveal"
	PhasePending AuctionPhase = "pending_close"
	PhaseClosed  AuctionPhase = "closed"
)

// RevealedBid is a disclosed bid together with the logical time it was
// revealed at, which participates in the residual tie-break.
type RevealedBid struct {
	Amount     fixed.Num
	RevealedAt Timestamp
}

// Auction is a sealed-bid commit-reveal auction over one pool. Multiple
// auctions per pool may coexist, each tracked by its own id.
type Auction struct {
	ID        uint64
	PoolID    uint64
	BidEnd    Timestamp
	RevealEnd Timestamp

	// Commits and Reveals are keyed by bidder. Bidders records first-commit
	// order so map iteration never decides anything observable.
	Commits map[Account]CommitHash
	Reveals map[Account]RevealedBid
	Bidders []Account

	Closed        bool
	Winner        *Account
	WinningAmount fixed.Num
	BonusPaid     bool
}

// Phase derives the auction phase at the given logical time.
func (a *Auction) Phase(now Timestamp) AuctionPhase {
	switch {
	case a.Closed:
		return PhaseClosed
	case now < a.BidEnd:
		return PhaseBidding
	case now < a.RevealEnd:
		return PhaseReveal
	default:
		return PhasePending
	}
}
