package domain

import (
	"errors"

	"github.com/creditmesh/chitengine/internal/fixed"
)

var (
	// ErrUnauthorized means the caller lacks the capability required by
	// the operation. Checked before any side effect.
	ErrUnauthorized = errors.New("unauthorized")

	// Input validation.
	ErrInvalidWeight = errors.New("trust weight exceeds scale")
	ErrZeroSize      = errors.New("pool size is zero")
	ErrNoValue       = errors.New("deposit value is zero")

	// Eligibility gates.
	ErrRatingTooLow      = errors.New("pool rating below minimum")
	ErrOperatorCreditLow = errors.New("operator credit score below threshold")

	// Auction state machine.
	ErrBiddingOver       = errors.New("bidding window closed")
	ErrNotInRevealWindow = errors.New("not in reveal window")
	ErrNoCommit          = errors.New("no commit stored for caller")
	ErrCommitMismatch    = errors.New("revealed bid does not match commit")
	ErrAlreadyRevealed   = errors.New("bid already revealed")
	ErrRevealOngoing     = errors.New("reveal window still open")
	ErrAlreadyClosed     = errors.New("auction already closed")

	// External collaborators.
	ErrProtocolNotAllowed  = errors.New("protocol not allowlisted")
	ErrTokenTransferFailed = errors.New("token transfer failed")

	// Lookups.
	ErrPoolNotFound    = errors.New("pool not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNotFound        = errors.New("not found")
)

// ErrOverflow is fatal arithmetic overflow, surfaced from the fixed-point
// layer unchanged so callers can match it with errors.Is.
var ErrOverflow = fixed.ErrOverflow
