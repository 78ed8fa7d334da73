package reputation

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
	"github.com/creditmesh/chitengine/internal/trust"
)

func acct(b byte) domain.Account {
	return common.BytesToAddress([]byte{b})
}

// damping85 is 0.85 scaled, the value used throughout these tests.
func damping85(t *testing.T) fixed.Num {
	t.Helper()
	d, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(85), fixed.FromUint64(100))
	require.NoError(t, err)
	return d
}

func newScorer(t *testing.T) (*Scorer, *trust.Graph) {
	t.Helper()
	g := trust.NewGraph(nil)
	s, err := NewScorer(g, damping85(t), nil)
	require.NoError(t, err)
	return s, g
}

func TestNewScorerRejectsDampingOutOfRange(t *testing.T) {
	g := trust.NewGraph(nil)

	_, err := NewScorer(g, fixed.Zero(), nil)
	require.Error(t, err)

	_, err = NewScorer(g, fixed.Scale(), nil)
	require.Error(t, err)
}

func TestBayesianReputationNeutralPrior(t *testing.T) {
	s, _ := newScorer(t)

	// No observations: exactly SCALE/2.
	got, err := s.BayesianReputation(acct(1))
	require.NoError(t, err)
	want, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(1), fixed.FromUint64(2))
	require.NoError(t, err)
	require.True(t, got.Eq(&want))
}

func TestBayesianReputationFormula(t *testing.T) {
	s, _ := newScorer(t)
	a := acct(1)

	// n successes, 0 failures: (n+1)*SCALE/(n+2).
	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.RecordOutcome(a, true))
	}
	got, err := s.BayesianReputation(a)
	require.NoError(t, err)
	want, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(n+1), fixed.FromUint64(n+2))
	require.NoError(t, err)
	require.True(t, got.Eq(&want))

	// A failure pulls the estimate down.
	require.NoError(t, s.RecordOutcome(a, false))
	after, err := s.BayesianReputation(a)
	require.NoError(t, err)
	require.True(t, after.Lt(&got))
}

func TestPaymentFrequency(t *testing.T) {
	s, _ := newScorer(t)
	a := acct(1)

	// Zero observations: 0 by convention, not an error.
	got, err := s.PaymentFrequency(a)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	require.NoError(t, s.RecordPaymentStats(a, true, 0))
	require.NoError(t, s.RecordPaymentStats(a, true, 0))
	require.NoError(t, s.RecordPaymentStats(a, false, 3600))

	got, err = s.PaymentFrequency(a)
	require.NoError(t, err)
	want, err := fixed.Ratio(2, 3)
	require.NoError(t, err)
	require.True(t, got.Eq(&want))
}

func TestInverseDelayScore(t *testing.T) {
	s, _ := newScorer(t)
	a := acct(1)

	// No delay observed: full score.
	got, err := s.InverseDelayScore(a)
	require.NoError(t, err)
	scale := fixed.Scale()
	require.True(t, got.Eq(&scale))

	require.NoError(t, s.RecordPaymentStats(a, true, 0))
	got, err = s.InverseDelayScore(a)
	require.NoError(t, err)
	require.True(t, got.Eq(&scale))

	// One payment a full softening interval late halves the score.
	b := acct(2)
	require.NoError(t, s.RecordPaymentStats(b, false, delaySofteningSeconds))
	got, err = s.InverseDelayScore(b)
	require.NoError(t, err)
	halfScale, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(1), fixed.FromUint64(2))
	require.NoError(t, err)
	require.True(t, got.Eq(&halfScale))

	// Larger average delay scores strictly lower.
	c := acct(3)
	require.NoError(t, s.RecordPaymentStats(c, false, 10*delaySofteningSeconds))
	lower, err := s.InverseDelayScore(c)
	require.NoError(t, err)
	require.True(t, lower.Lt(&got))
}

func TestPageRankNoInboundIsBaseRank(t *testing.T) {
	s, _ := newScorer(t)

	got, err := s.PageRank(acct(1))
	require.NoError(t, err)
	want, err := fixed.Sub(fixed.Scale(), damping85(t))
	require.NoError(t, err)
	require.True(t, got.Eq(&want))
}

func TestPageRankSingleInboundEdge(t *testing.T) {
	s, g := newScorer(t)
	u, v := acct(1), acct(2)
	require.NoError(t, g.SetTrust(u, v, fixed.Scale()))

	// u's whole outgoing weight points at v, so v receives u's full
	// damped prior: rank(v) = base + d*base/SCALE.
	d := damping85(t)
	base, err := fixed.Sub(fixed.Scale(), d)
	require.NoError(t, err)
	damped, err := fixed.MulScaled(d, base)
	require.NoError(t, err)
	want, err := fixed.Add(base, damped)
	require.NoError(t, err)

	got, err := s.PageRank(v)
	require.NoError(t, err)
	require.True(t, got.Eq(&want))
}

func TestPageRankSplitsByOutWeight(t *testing.T) {
	s, g := newScorer(t)
	u, v, w := acct(1), acct(2), acct(3)
	h, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(1), fixed.FromUint64(2))
	require.NoError(t, err)
	require.NoError(t, g.SetTrust(u, v, h))
	require.NoError(t, g.SetTrust(u, w, h))

	// v gets half of u's damped prior.
	rv, err := s.PageRank(v)
	require.NoError(t, err)
	rw, err := s.PageRank(w)
	require.NoError(t, err)
	require.True(t, rv.Eq(&rw))

	full, err := s.PageRank(acct(4))
	require.NoError(t, err)
	require.True(t, full.Lt(&rv))
}

func TestPageRankTerminatesOnCycle(t *testing.T) {
	s, g := newScorer(t)
	u, v := acct(1), acct(2)
	require.NoError(t, g.SetTrust(u, v, fixed.Scale()))
	require.NoError(t, g.SetTrust(v, u, fixed.Scale()))

	// Depth bound collapses the far side of the cycle to the base rank.
	_, err := s.PageRank(u)
	require.NoError(t, err)
	_, err = s.PageRank(v)
	require.NoError(t, err)
}

func TestComputeCreditScoreBounds(t *testing.T) {
	s, g := newScorer(t)
	scale := fixed.Scale()

	// Accounts across the spectrum stay within [0, SCALE].
	empty := acct(1)
	strong := acct(2)
	weak := acct(3)

	for i := 0; i < 20; i++ {
		require.NoError(t, s.RecordOutcome(strong, true))
		require.NoError(t, s.RecordPaymentStats(strong, true, 0))
		require.NoError(t, s.RecordOutcome(weak, false))
		require.NoError(t, s.RecordPaymentStats(weak, false, 500_000))
	}
	// Many full-weight endorsements push the raw walk rank past SCALE;
	// the combination must still stay bounded.
	for b := byte(10); b < 15; b++ {
		require.NoError(t, g.SetTrust(acct(b), strong, fixed.Scale()))
	}

	for _, a := range []domain.Account{empty, strong, weak} {
		score, err := s.ComputeCreditScore(a)
		require.NoError(t, err)
		require.False(t, score.Gt(&scale))
	}

	strongScore, err := s.ComputeCreditScore(strong)
	require.NoError(t, err)
	weakScore, err := s.ComputeCreditScore(weak)
	require.NoError(t, err)
	require.True(t, weakScore.Lt(&strongScore))
}

func TestRecordOutcomeCounts(t *testing.T) {
	s, _ := newScorer(t)
	a := acct(1)

	require.NoError(t, s.RecordOutcome(a, true))
	require.NoError(t, s.RecordOutcome(a, false))
	require.NoError(t, s.RecordOutcome(a, true))

	st := s.OutcomeStats(a)
	require.Equal(t, uint64(2), st.SuccessCount)
	require.Equal(t, uint64(1), st.FailureCount)
}

func TestRecordPaymentStatsAccumulatesDelayUnconditionally(t *testing.T) {
	s, _ := newScorer(t)
	a := acct(1)

	require.NoError(t, s.RecordPaymentStats(a, true, 5))
	require.NoError(t, s.RecordPaymentStats(a, false, 100))

	st := s.PaymentStats(a)
	require.Equal(t, uint64(1), st.OnTimeCount)
	require.Equal(t, uint64(2), st.TotalCount)
	require.Equal(t, uint64(105), st.CumulativeDelaySeconds)
}
