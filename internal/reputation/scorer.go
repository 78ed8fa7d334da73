// Package reputation derives credit scores from outcome history, payment
// timeliness, and the trust graph. Every score is a fixed-point ratio in
// [0, SCALE] and every computation is integer-only, so identical inputs
// score identically on every node.
package reputation

import (
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
	"github.com/creditmesh/chitengine/internal/trust"
)

const (
	// rankDepth bounds the recursive trust walk to one hop. Behavior at
	// deeper hops is deliberately left out; at depth zero the prior
	// collapses to the base rank, which also terminates cycles.
	rankDepth = 1

	// delaySofteningSeconds is the average delay at which the inverse
	// delay score halves (one day).
	delaySofteningSeconds = 86_400
)

// Credit combination weights, in percent of SCALE. They sum to 100.
const (
	weightBayesianPct     = 30
	weightPaymentFreqPct  = 25
	weightInverseDelayPct = 15
	weightPageRankPct     = 30
)

// Scorer reads the trust graph and accumulates per-account outcome and
// payment statistics. Mutation is serialized by the owning engine.
type Scorer struct {
	graph    *trust.Graph
	damping  fixed.Num
	outcomes map[domain.Account]domain.OutcomeStats
	payments map[domain.Account]domain.PaymentStats
	sink     domain.EventSink
}

// NewScorer creates a Scorer over graph with the given damping factor,
// which must lie strictly inside (0, SCALE).
func NewScorer(graph *trust.Graph, damping fixed.Num, sink domain.EventSink) (*Scorer, error) {
	scale := fixed.Scale()
	if damping.IsZero() || !damping.Lt(&scale) {
		return nil, fmt.Errorf("reputation: damping factor %s outside (0, SCALE)", damping.Dec())
	}
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Scorer{
		graph:    graph,
		damping:  damping,
		outcomes: make(map[domain.Account]domain.OutcomeStats),
		payments: make(map[domain.Account]domain.PaymentStats),
		sink:     sink,
	}, nil
}

// DampingFactor returns the configured damping factor.
func (s *Scorer) DampingFactor() fixed.Num {
	return s.damping
}

// RecordOutcome increments the success or failure counter for account.
// Counter overflow is fatal and leaves the stats untouched.
func (s *Scorer) RecordOutcome(account domain.Account, success bool) error {
	st := s.outcomes[account]
	if success {
		if st.SuccessCount+1 < st.SuccessCount {
			return fmt.Errorf("reputation: success count for %s: %w", account, domain.ErrOverflow)
		}
		st.SuccessCount++
	} else {
		if st.FailureCount+1 < st.FailureCount {
			return fmt.Errorf("reputation: failure count for %s: %w", account, domain.ErrOverflow)
		}
		st.FailureCount++
	}
	s.outcomes[account] = st
	s.sink.Emit(domain.OutcomeRecordedEvent{Account: account, Success: success})
	return nil
}

// RecordPaymentStats records one payment observation. The delay is
// accumulated unconditionally, even for on-time payments where it is
// expected to be zero.
func (s *Scorer) RecordPaymentStats(account domain.Account, onTime bool, delaySeconds uint64) error {
	st := s.payments[account]
	if st.TotalCount+1 < st.TotalCount {
		return fmt.Errorf("reputation: payment count for %s: %w", account, domain.ErrOverflow)
	}
	if st.CumulativeDelaySeconds+delaySeconds < st.CumulativeDelaySeconds {
		return fmt.Errorf("reputation: cumulative delay for %s: %w", account, domain.ErrOverflow)
	}
	st.TotalCount++
	if onTime {
		st.OnTimeCount++
	}
	st.CumulativeDelaySeconds += delaySeconds
	s.payments[account] = st
	s.sink.Emit(domain.PaymentRecordedEvent{Account: account, OnTime: onTime, DelaySeconds: delaySeconds})
	return nil
}

// OutcomeStats returns the raw outcome counters for account.
func (s *Scorer) OutcomeStats(account domain.Account) domain.OutcomeStats {
	return s.outcomes[account]
}

// PaymentStats returns the raw payment counters for account.
func (s *Scorer) PaymentStats(account domain.Account) domain.PaymentStats {
	return s.payments[account]
}

// BayesianReputation estimates the success rate with a neutral prior:
// (successes+1)*SCALE/(successes+failures+2). With no observations it is
// exactly SCALE/2, converging toward the observed rate.
func (s *Scorer) BayesianReputation(account domain.Account) (fixed.Num, error) {
	st := s.outcomes[account]
	r, err := fixed.MulDiv(
		fixed.FromUint64(st.SuccessCount+1),
		fixed.Scale(),
		fixed.FromUint64(st.SuccessCount+st.FailureCount+2),
	)
	if err != nil {
		return fixed.Num{}, fmt.Errorf("reputation: bayesian for %s: %w", account, err)
	}
	return r, nil
}

// PaymentFrequency is onTime*SCALE/total, zero by convention when no
// payments have been observed.
func (s *Scorer) PaymentFrequency(account domain.Account) (fixed.Num, error) {
	st := s.payments[account]
	if st.TotalCount == 0 {
		return fixed.Zero(), nil
	}
	r, err := fixed.Ratio(st.OnTimeCount, st.TotalCount)
	if err != nil {
		return fixed.Num{}, fmt.Errorf("reputation: payment frequency for %s: %w", account, err)
	}
	return r, nil
}

// InverseDelayScore maps average payment delay into [0, SCALE]:
// SCALE*softening/(softening+avgDelay). SCALE at zero delay, halved at
// one softening interval, saturating toward zero for large delays.
func (s *Scorer) InverseDelayScore(account domain.Account) (fixed.Num, error) {
	st := s.payments[account]
	var avg uint64
	if st.TotalCount > 0 {
		avg = st.CumulativeDelaySeconds / st.TotalCount
	}
	r, err := fixed.MulDiv(
		fixed.Scale(),
		fixed.FromUint64(delaySofteningSeconds),
		fixed.FromUint64(delaySofteningSeconds+avg),
	)
	if err != nil {
		return fixed.Num{}, fmt.Errorf("reputation: inverse delay for %s: %w", account, err)
	}
	return r, nil
}

// PageRank computes a depth-bounded recursive walk over inbound trust:
//
//	rank(v) = (SCALE - d) + d * Σ weight(u,v) * prior(u) / outSum(u)
//
// where prior(u) is rank(u) evaluated one hop shallower, collapsing to
// the base rank (SCALE - d) at depth zero. An account with no inbound
// trusters ranks at exactly SCALE - d.
func (s *Scorer) PageRank(account domain.Account) (fixed.Num, error) {
	return s.rank(account, rankDepth)
}

func (s *Scorer) rank(v domain.Account, depth int) (fixed.Num, error) {
	base, err := fixed.Sub(fixed.Scale(), s.damping)
	if err != nil {
		return fixed.Num{}, fmt.Errorf("reputation: rank base: %w", err)
	}
	if depth <= 0 {
		return base, nil
	}

	acc := base
	for _, u := range s.graph.InboundTrusters(v) {
		w := s.graph.Weight(u, v)
		if w.IsZero() {
			continue
		}
		prior, err := s.rank(u, depth-1)
		if err != nil {
			return fixed.Num{}, err
		}
		// An existing nonzero edge implies a nonzero outgoing sum at u.
		contrib, err := fixed.MulDiv(w, prior, s.graph.OutWeightSum(u))
		if err != nil {
			return fixed.Num{}, fmt.Errorf("reputation: rank contribution %s -> %s: %w", u, v, err)
		}
		damped, err := fixed.MulScaled(s.damping, contrib)
		if err != nil {
			return fixed.Num{}, fmt.Errorf("reputation: rank damping %s -> %s: %w", u, v, err)
		}
		acc, err = fixed.Add(acc, damped)
		if err != nil {
			return fixed.Num{}, fmt.Errorf("reputation: rank for %s: %w", v, err)
		}
	}
	return acc, nil
}

// ComputeCreditScore combines the four component scores with fixed
// weights (30% bayesian, 25% payment frequency, 15% inverse delay, 30%
// page rank). The raw walk rank can exceed SCALE when many sources point
// at one account, so it is clamped before weighting; the result is
// always within [0, SCALE].
func (s *Scorer) ComputeCreditScore(account domain.Account) (fixed.Num, error) {
	bayes, err := s.BayesianReputation(account)
	if err != nil {
		return fixed.Num{}, err
	}
	freq, err := s.PaymentFrequency(account)
	if err != nil {
		return fixed.Num{}, err
	}
	inv, err := s.InverseDelayScore(account)
	if err != nil {
		return fixed.Num{}, err
	}
	pr, err := s.PageRank(account)
	if err != nil {
		return fixed.Num{}, err
	}
	pr = fixed.Clamp(pr, fixed.Scale())

	total := fixed.Zero()
	for _, part := range []struct {
		score fixed.Num
		pct   uint64
	}{
		{bayes, weightBayesianPct},
		{freq, weightPaymentFreqPct},
		{inv, weightInverseDelayPct},
		{pr, weightPageRankPct},
	} {
		weighted, err := fixed.MulDiv(part.score, fixed.FromUint64(part.pct), fixed.FromUint64(100))
		if err != nil {
			return fixed.Num{}, fmt.Errorf("reputation: credit score for %s: %w", account, err)
		}
		total, err = fixed.Add(total, weighted)
		if err != nil {
			return fixed.Num{}, fmt.Errorf("reputation: credit score for %s: %w", account, err)
		}
	}
	return total, nil
}
