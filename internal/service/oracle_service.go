package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creditmesh/chitengine/internal/chit"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// scoreCacheTTL bounds staleness of cached score snapshots. Oracle
// writes invalidate eagerly; the TTL only covers missed invalidations.
const scoreCacheTTL = 30 * time.Second

// OracleService handles the privileged reputation writes and the score
// read surface.
type OracleService struct {
	core   *Core
	logger *slog.Logger
}

// NewOracleService creates an OracleService over the shared core.
func NewOracleService(core *Core, logger *slog.Logger) *OracleService {
	return &OracleService{
		core:   core,
		logger: logger.With(slog.String("component", "oracle_service")),
	}
}

// SetTrust records a trust edge from the calling oracle.
func (s *OracleService) SetTrust(ctx context.Context, caller, to domain.Account, weight fixed.Num) error {
	err := s.core.apply(ctx, []domain.Account{to}, func(domain.Timestamp) error {
		return s.core.engine.SetTrust(caller, to, weight)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "trust set",
		slog.String("from", caller.Hex()),
		slog.String("to", to.Hex()),
		slog.String("weight", weight.Dec()),
	)
	return nil
}

// RecordOutcome records a success/failure observation for account.
func (s *OracleService) RecordOutcome(ctx context.Context, caller, account domain.Account, success bool) error {
	return s.core.apply(ctx, []domain.Account{account}, func(domain.Timestamp) error {
		return s.core.engine.RecordOutcome(caller, account, success)
	})
}

// RecordPaymentStats records a payment observation for account.
func (s *OracleService) RecordPaymentStats(ctx context.Context, caller, account domain.Account, onTime bool, delaySeconds uint64) error {
	return s.core.apply(ctx, []domain.Account{account}, func(domain.Timestamp) error {
		return s.core.engine.RecordPaymentStats(caller, account, onTime, delaySeconds)
	})
}

// Score returns the full score breakdown for account, served from the
// cache when fresh.
func (s *OracleService) Score(ctx context.Context, account domain.Account) (domain.ScoreSnapshot, error) {
	if cache := s.core.scores; cache != nil {
		if snap, ok, err := cache.Get(ctx, account); err == nil && ok {
			return snap, nil
		} else if err != nil {
			s.logger.WarnContext(ctx, "score cache read", slog.String("error", err.Error()))
		}
	}

	var snap domain.ScoreSnapshot
	err := s.core.View(func(e *chit.Engine, _ domain.Timestamp) error {
		scorer := e.Scorer()
		credit, err := scorer.ComputeCreditScore(account)
		if err != nil {
			return fmt.Errorf("oracle_service: score %s: %w", account, err)
		}
		bayes, err := scorer.BayesianReputation(account)
		if err != nil {
			return err
		}
		freq, err := scorer.PaymentFrequency(account)
		if err != nil {
			return err
		}
		inv, err := scorer.InverseDelayScore(account)
		if err != nil {
			return err
		}
		pr, err := scorer.PageRank(account)
		if err != nil {
			return err
		}
		snap = domain.ScoreSnapshot{
			Account:      account,
			Credit:       credit.Dec(),
			Bayesian:     bayes.Dec(),
			PaymentFreq:  freq.Dec(),
			InverseDelay: inv.Dec(),
			PageRank:     pr.Dec(),
		}
		return nil
	})
	if err != nil {
		return domain.ScoreSnapshot{}, err
	}

	if cache := s.core.scores; cache != nil {
		if err := cache.Set(ctx, snap, scoreCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "score cache write", slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// TrustWeight returns the weight of the from→to edge.
func (s *OracleService) TrustWeight(ctx context.Context, from, to domain.Account) (fixed.Num, error) {
	var w fixed.Num
	err := s.core.View(func(e *chit.Engine, _ domain.Timestamp) error {
		w = e.Graph().Weight(from, to)
		return nil
	})
	return w, err
}

// OutWeightSum returns the sum of all weights from has set.
func (s *OracleService) OutWeightSum(ctx context.Context, from domain.Account) (fixed.Num, error) {
	var sum fixed.Num
	err := s.core.View(func(e *chit.Engine, _ domain.Timestamp) error {
		sum = e.Graph().OutWeightSum(from)
		return nil
	})
	return sum, err
}

// InboundTrusters returns the accounts that ever trusted to, in
// first-set order.
func (s *OracleService) InboundTrusters(ctx context.Context, to domain.Account) ([]domain.Account, error) {
	var out []domain.Account
	err := s.core.View(func(e *chit.Engine, _ domain.Timestamp) error {
		out = e.Graph().InboundTrusters(to)
		return nil
	})
	return out, err
}
