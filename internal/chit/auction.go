package chit

import (
	"context"
	"fmt"

	"github.com/creditmesh/chitengine/internal/crypto"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// CreateAuction opens a commit-reveal auction over an existing pool.
// The pool rating must clear the configured minimum, and for pools
// larger than the size cap the operator's credit score must clear
// MinCreditForLarge. The phase is derived from now against the two
// deadlines; no stored transition happens after creation besides close.
func (e *Engine) CreateAuction(caller domain.Account, poolID uint64, bidDuration, revealDuration uint64, now domain.Timestamp) (uint64, error) {
	if err := e.gate.Require(caller, domain.RoleOperator); err != nil {
		return 0, err
	}
	pool, ok := e.pools[poolID]
	if !ok {
		return 0, fmt.Errorf("chit: create auction: pool %d: %w", poolID, domain.ErrPoolNotFound)
	}
	if pool.Rating < e.params.MinOperatorRating {
		return 0, fmt.Errorf("chit: create auction: pool %d rating %d: %w", poolID, pool.Rating, domain.ErrRatingTooLow)
	}
	if pool.Size.Gt(&e.params.PoolSizeCap) {
		score, err := e.scorer.ComputeCreditScore(pool.Operator)
		if err != nil {
			return 0, fmt.Errorf("chit: create auction: score %s: %w", pool.Operator, err)
		}
		if score.Lt(&e.params.MinCreditForLarge) {
			return 0, fmt.Errorf("chit: create auction: pool %d: %w", poolID, domain.ErrOperatorCreditLow)
		}
	}

	id := e.nextAuctionID
	e.nextAuctionID++
	bidEnd := now + bidDuration
	revealEnd := bidEnd + revealDuration
	e.auctions[id] = &domain.Auction{
		ID:        id,
		PoolID:    poolID,
		BidEnd:    bidEnd,
		RevealEnd: revealEnd,
		Commits:   make(map[domain.Account]domain.CommitHash),
		Reveals:   make(map[domain.Account]domain.RevealedBid),
	}

	e.sink.Emit(domain.AuctionCreatedEvent{AuctionID: id, PoolID: poolID, BidEnd: bidEnd, RevealEnd: revealEnd})
	return id, nil
}

// CommitBid stores the caller's hashed bid. Re-committing before the
// deadline overwrites the previous commitment.
func (e *Engine) CommitBid(caller domain.Account, auctionID uint64, commit domain.CommitHash, now domain.Timestamp) error {
	if err := e.gate.Require(caller, domain.RoleParticipant); err != nil {
		return err
	}
	a, ok := e.auctions[auctionID]
	if !ok {
		return fmt.Errorf("chit: commit bid: auction %d: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if now >= a.BidEnd {
		return fmt.Errorf("chit: commit bid: auction %d: %w", auctionID, domain.ErrBiddingOver)
	}

	if _, seen := a.Commits[caller]; !seen {
		a.Bidders = append(a.Bidders, caller)
	}
	a.Commits[caller] = commit

	e.sink.Emit(domain.BidCommittedEvent{AuctionID: auctionID, Bidder: caller})
	return nil
}

// RevealBid discloses a committed bid inside the reveal window. The
// revealed pair must hash to the stored commitment; a second reveal for
// the same auction is rejected.
func (e *Engine) RevealBid(caller domain.Account, auctionID uint64, amount fixed.Num, secret string, now domain.Timestamp) error {
	if err := e.gate.Require(caller, domain.RoleParticipant); err != nil {
		return err
	}
	a, ok := e.auctions[auctionID]
	if !ok {
		return fmt.Errorf("chit: reveal bid: auction %d: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if now < a.BidEnd || now >= a.RevealEnd {
		return fmt.Errorf("chit: reveal bid: auction %d: %w", auctionID, domain.ErrNotInRevealWindow)
	}
	commit, ok := a.Commits[caller]
	if !ok {
		return fmt.Errorf("chit: reveal bid: auction %d: %w", auctionID, domain.ErrNoCommit)
	}
	if crypto.CommitHash(amount, secret) != commit {
		return fmt.Errorf("chit: reveal bid: auction %d: %w", auctionID, domain.ErrCommitMismatch)
	}
	if _, done := a.Reveals[caller]; done {
		return fmt.Errorf("chit: reveal bid: auction %d: %w", auctionID, domain.ErrAlreadyRevealed)
	}

	a.Reveals[caller] = domain.RevealedBid{Amount: amount, RevealedAt: now}

	e.sink.Emit(domain.BidRevealedEvent{AuctionID: auctionID, Bidder: caller, Amount: amount})
	return nil
}

// CloseAuction settles an auction once the reveal window has passed.
// Anyone may close. The winner is selected among revealed bids by
// highest amount, then highest credit score, then earliest reveal, then
// lowest account bytes. Closing with zero reveals succeeds with no
// winner. A bonus is paid from the fund account when the winner's score
// clears MinCreditForLarge and the fund balance covers it; a failed
// transfer aborts the close with no state change.
func (e *Engine) CloseAuction(ctx context.Context, caller domain.Account, auctionID uint64, now domain.Timestamp) error {
	a, ok := e.auctions[auctionID]
	if !ok {
		return fmt.Errorf("chit: close auction %d: %w", auctionID, domain.ErrAuctionNotFound)
	}
	if a.Closed {
		return fmt.Errorf("chit: close auction %d: %w", auctionID, domain.ErrAlreadyClosed)
	}
	if now < a.RevealEnd {
		return fmt.Errorf("chit: close auction %d: %w", auctionID, domain.ErrRevealOngoing)
	}

	winner, winning, err := e.selectWinner(a)
	if err != nil {
		return fmt.Errorf("chit: close auction %d: %w", auctionID, err)
	}

	bonus := fixed.Zero()
	if winner != nil {
		paid, err := e.payBonus(ctx, *winner)
		if err != nil {
			return fmt.Errorf("chit: close auction %d: %w", auctionID, err)
		}
		if paid {
			bonus = e.params.BonusAmount
		}
	}

	a.Closed = true
	a.Winner = winner
	a.WinningAmount = winning
	a.BonusPaid = !bonus.IsZero()

	e.sink.Emit(domain.AuctionClosedEvent{AuctionID: auctionID, Winner: winner, Amount: winning, Bonus: bonus})
	return nil
}

// selectWinner scans revealed bids in first-commit order and applies the
// four-level tie-break. Returns a nil winner when nothing was revealed.
func (e *Engine) selectWinner(a *domain.Auction) (*domain.Account, fixed.Num, error) {
	var (
		winner   *domain.Account
		winBid   domain.RevealedBid
		winScore fixed.Num
	)

	for _, bidder := range a.Bidders {
		bid, ok := a.Reveals[bidder]
		if !ok {
			continue
		}
		score, err := e.scorer.ComputeCreditScore(bidder)
		if err != nil {
			return nil, fixed.Num{}, err
		}
		if winner == nil || beats(bid, score, bidder, winBid, winScore, *winner) {
			b := bidder
			winner = &b
			winBid = bid
			winScore = score
		}
	}

	if winner == nil {
		return nil, fixed.Zero(), nil
	}
	return winner, winBid.Amount, nil
}

// beats reports whether the challenger bid beats the incumbent:
// higher amount, then higher credit score, then earlier reveal, then
// lower account bytes.
func beats(
	bid domain.RevealedBid, score fixed.Num, bidder domain.Account,
	bestBid domain.RevealedBid, bestScore fixed.Num, best domain.Account,
) bool {
	if !bid.Amount.Eq(&bestBid.Amount) {
		return bid.Amount.Gt(&bestBid.Amount)
	}
	if !score.Eq(&bestScore) {
		return score.Gt(&bestScore)
	}
	if bid.RevealedAt != bestBid.RevealedAt {
		return bid.RevealedAt < bestBid.RevealedAt
	}
	return domain.AccountLess(bidder, best)
}

// payBonus pays the configured bonus to winner when their score clears
// the large-pool threshold and the fund balance covers the amount.
// Returns whether a bonus was paid; transfer failure is an error so the
// caller can abort without mutating auction state.
func (e *Engine) payBonus(ctx context.Context, winner domain.Account) (bool, error) {
	if e.params.BonusAmount.IsZero() {
		return false, nil
	}
	score, err := e.scorer.ComputeCreditScore(winner)
	if err != nil {
		return false, err
	}
	if score.Lt(&e.params.MinCreditForLarge) {
		return false, nil
	}
	balance, err := e.token.BalanceOf(ctx, e.params.FundAccount)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrTokenTransferFailed, err)
	}
	if balance.Lt(&e.params.BonusAmount) {
		return false, nil
	}
	ok, err := e.token.Transfer(ctx, e.params.FundAccount, winner, e.params.BonusAmount)
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrTokenTransferFailed, err)
	}
	if !ok {
		return false, domain.ErrTokenTransferFailed
	}
	return true, nil
}

// Auction returns a snapshot copy of the auction record.
func (e *Engine) Auction(auctionID uint64) (domain.Auction, error) {
	a, ok := e.auctions[auctionID]
	if !ok {
		return domain.Auction{}, fmt.Errorf("chit: auction %d: %w", auctionID, domain.ErrAuctionNotFound)
	}
	snap := *a
	snap.Commits = make(map[domain.Account]domain.CommitHash, len(a.Commits))
	for k, v := range a.Commits {
		snap.Commits[k] = v
	}
	snap.Reveals = make(map[domain.Account]domain.RevealedBid, len(a.Reveals))
	for k, v := range a.Reveals {
		snap.Reveals[k] = v
	}
	snap.Bidders = append([]domain.Account(nil), a.Bidders...)
	return snap, nil
}

// AuctionCount returns the number of auctions ever created.
func (e *Engine) AuctionCount() uint64 {
	return e.nextAuctionID - 1
}
