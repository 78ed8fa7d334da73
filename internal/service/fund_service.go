package service

import (
	"context"
	"log/slog"

	"github.com/creditmesh/chitengine/internal/chit"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// FundService drives the pool registry and the auction state machine.
type FundService struct {
	core   *Core
	logger *slog.Logger
}

// NewFundService creates a FundService over the shared core.
func NewFundService(core *Core, logger *slog.Logger) *FundService {
	return &FundService{
		core:   core,
		logger: logger.With(slog.String("component", "fund_service")),
	}
}

// CreatePool opens a pool for the calling operator and returns its id.
func (s *FundService) CreatePool(ctx context.Context, caller domain.Account, size fixed.Num, rating uint8) (uint64, error) {
	var id uint64
	err := s.core.apply(ctx, nil, func(now domain.Timestamp) error {
		var err error
		id, err = s.core.engine.CreatePool(caller, size, rating, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "pool created",
		slog.Uint64("pool_id", id),
		slog.String("operator", caller.Hex()),
		slog.String("size", size.Dec()),
	)
	return id, nil
}

// DepositPremium adds value to a pool's premium balance.
func (s *FundService) DepositPremium(ctx context.Context, caller domain.Account, poolID uint64, value fixed.Num) error {
	return s.core.apply(ctx, nil, func(domain.Timestamp) error {
		return s.core.engine.DepositPremium(caller, poolID, value)
	})
}

// CreateAuction opens an auction over a pool and returns its id.
func (s *FundService) CreateAuction(ctx context.Context, caller domain.Account, poolID, bidDuration, revealDuration uint64) (uint64, error) {
	var id uint64
	err := s.core.apply(ctx, nil, func(now domain.Timestamp) error {
		var err error
		id, err = s.core.engine.CreateAuction(caller, poolID, bidDuration, revealDuration, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "auction created",
		slog.Uint64("auction_id", id),
		slog.Uint64("pool_id", poolID),
	)
	return id, nil
}

// CommitBid stores the caller's sealed bid.
func (s *FundService) CommitBid(ctx context.Context, caller domain.Account, auctionID uint64, commit domain.CommitHash) error {
	return s.core.apply(ctx, nil, func(now domain.Timestamp) error {
		return s.core.engine.CommitBid(caller, auctionID, commit, now)
	})
}

// RevealBid discloses the caller's bid inside the reveal window.
func (s *FundService) RevealBid(ctx context.Context, caller domain.Account, auctionID uint64, amount fixed.Num, secret string) error {
	return s.core.apply(ctx, nil, func(now domain.Timestamp) error {
		return s.core.engine.RevealBid(caller, auctionID, amount, secret, now)
	})
}

// CloseAuction settles an auction, then archives the closed record to
// the relational archive and blob storage, both best-effort.
func (s *FundService) CloseAuction(ctx context.Context, caller domain.Account, auctionID uint64) error {
	var (
		snapshot domain.Auction
		closedAt domain.Timestamp
	)
	err := s.core.apply(ctx, nil, func(now domain.Timestamp) error {
		if err := s.core.engine.CloseAuction(ctx, caller, auctionID, now); err != nil {
			return err
		}
		closedAt = now
		var err error
		snapshot, err = s.core.engine.Auction(auctionID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "auction closed",
		slog.Uint64("auction_id", auctionID),
		slog.Bool("bonus_paid", snapshot.BonusPaid),
	)

	if s.core.archive != nil {
		if err := s.core.archive.Insert(ctx, snapshot, closedAt); err != nil {
			s.logger.ErrorContext(ctx, "archive auction row", slog.String("error", err.Error()))
		}
	}
	if s.core.archiver != nil {
		if err := s.core.archiver.ArchiveAuction(ctx, snapshot); err != nil {
			s.logger.ErrorContext(ctx, "archive auction blob", slog.String("error", err.Error()))
		}
	}
	return nil
}

// TradeTokens moves tokens between accounts via the external ledger.
func (s *FundService) TradeTokens(ctx context.Context, caller, to domain.Account, amount fixed.Num) error {
	return s.core.apply(ctx, nil, func(domain.Timestamp) error {
		return s.core.engine.TradeTokens(ctx, caller, to, amount)
	})
}

// IntegrateWithDefi forwards a payload to an allowlisted protocol.
func (s *FundService) IntegrateWithDefi(ctx context.Context, caller, protocol domain.Account, payload []byte) ([]byte, error) {
	var out []byte
	err := s.core.apply(ctx, nil, func(domain.Timestamp) error {
		var err error
		out, err = s.core.engine.IntegrateWithDefi(ctx, caller, protocol, payload)
		return err
	})
	return out, err
}

// Pool returns a copy of the pool record.
func (s *FundService) Pool(ctx context.Context, poolID uint64) (domain.Pool, error) {
	var pool domain.Pool
	err := s.core.View(func(e *chit.Engine, _ domain.Timestamp) error {
		var err error
		pool, err = e.Pool(poolID)
		return err
	})
	return pool, err
}

// Auction returns a snapshot of the auction together with its derived
// phase at the current logical time.
func (s *FundService) Auction(ctx context.Context, auctionID uint64) (domain.Auction, domain.AuctionPhase, error) {
	var (
		a     domain.Auction
		phase domain.AuctionPhase
	)
	err := s.core.View(func(e *chit.Engine, now domain.Timestamp) error {
		var err error
		a, err = e.Auction(auctionID)
		if err != nil {
			return err
		}
		phase = a.Phase(now)
		return nil
	})
	if err != nil {
		return domain.Auction{}, "", err
	}
	return a, phase, nil
}
