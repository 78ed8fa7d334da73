package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/creditmesh/chitengine/internal/access"
	"github.com/creditmesh/chitengine/internal/chit"
	"github.com/creditmesh/chitengine/internal/crypto"
	"github.com/creditmesh/chitengine/internal/defi"
	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
	"github.com/creditmesh/chitengine/internal/reputation"
	"github.com/creditmesh/chitengine/internal/token"
	"github.com/creditmesh/chitengine/internal/trust"
)

// ---------------------------------------------------------------------------
// In-memory doubles for the journal, bus, score cache, and archive.
// ---------------------------------------------------------------------------

type memJournal struct {
	entries []domain.JournalEntry
}

func (j *memJournal) Append(_ context.Context, entries []domain.JournalEntry) error {
	j.entries = append(j.entries, entries...)
	return nil
}

func (j *memJournal) ListRecent(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	if limit > len(j.entries) {
		limit = len(j.entries)
	}
	out := make([]domain.JournalEntry, limit)
	copy(out, j.entries[len(j.entries)-limit:])
	return out, nil
}

type memBus struct {
	published map[string][][]byte
	stream    [][]byte
}

func newMemBus() *memBus {
	return &memBus{published: make(map[string][][]byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (b *memBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.stream = append(b.stream, payload)
	return nil
}

type memScores struct {
	snaps map[domain.Account]domain.ScoreSnapshot
	gets  int
	hits  int
}

func newMemScores() *memScores {
	return &memScores{snaps: make(map[domain.Account]domain.ScoreSnapshot)}
}

func (s *memScores) Get(_ context.Context, account domain.Account) (domain.ScoreSnapshot, bool, error) {
	s.gets++
	snap, ok := s.snaps[account]
	if ok {
		s.hits++
	}
	return snap, ok, nil
}

func (s *memScores) Set(_ context.Context, snap domain.ScoreSnapshot, _ time.Duration) error {
	s.snaps[snap.Account] = snap
	return nil
}

func (s *memScores) Invalidate(_ context.Context, accounts ...domain.Account) error {
	for _, a := range accounts {
		delete(s.snaps, a)
	}
	return nil
}

type memArchive struct {
	rows []domain.Auction
}

func (a *memArchive) Insert(_ context.Context, auction domain.Auction, _ domain.Timestamp) error {
	a.rows = append(a.rows, auction)
	return nil
}

type memArchiver struct {
	blobs []domain.Auction
}

func (a *memArchiver) ArchiveAuction(_ context.Context, auction domain.Auction) error {
	a.blobs = append(a.blobs, auction)
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type shellFixture struct {
	oracle *OracleService
	fund   *FundService
	admin  *AdminService

	journal  *memJournal
	bus      *memBus
	scores   *memScores
	archive  *memArchive
	archiver *memArchiver
	ledger   *token.MemoryLedger
	clock    *domain.ManualClock

	adminAcct    domain.Account
	operatorAcct domain.Account
	bidderAcct   domain.Account
}

func svcAcct(b byte) domain.Account {
	return common.BytesToAddress([]byte{b})
}

func newShellFixture(t *testing.T) *shellFixture {
	t.Helper()

	f := &shellFixture{
		journal:      &memJournal{},
		bus:          newMemBus(),
		scores:       newMemScores(),
		archive:      &memArchive{},
		archiver:     &memArchiver{},
		ledger:       token.NewMemoryLedger(),
		clock:        &domain.ManualClock{T: 1_000_000},
		adminAcct:    svcAcct(0x01),
		operatorAcct: svcAcct(0x02),
		bidderAcct:   svcAcct(0x03),
	}

	capture := NewEventCapture()
	gate := access.NewGate(f.adminAcct, capture)
	graph := trust.NewGraph(capture)

	damping, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(85), fixed.FromUint64(100))
	require.NoError(t, err)
	scorer, err := reputation.NewScorer(graph, damping, capture)
	require.NoError(t, err)

	cap1000, err := fixed.FromTokens(1000)
	require.NoError(t, err)
	threshold, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(70), fixed.FromUint64(100))
	require.NoError(t, err)

	engine, err := chit.New(chit.Params{
		PoolSizeCap:       cap1000,
		MinCreditForLarge: threshold,
		MinOperatorRating: 3,
		BonusAmount:       fixed.Zero(),
		FundAccount:       svcAcct(0xF0),
	}, gate, graph, scorer, f.ledger, &defi.RecordingCaller{}, capture)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := NewCore(engine, capture, f.clock, CoreOptions{
		Journal:  f.journal,
		Bus:      f.bus,
		Scores:   f.scores,
		Archive:  f.archive,
		Archiver: f.archiver,
	}, logger)

	f.oracle = NewOracleService(core, logger)
	f.fund = NewFundService(core, logger)
	f.admin = NewAdminService(core, logger)
	return f
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestApplyJournalsAndPublishes(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	weight, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(50), fixed.FromUint64(100))
	require.NoError(t, err)
	require.NoError(t, f.oracle.SetTrust(ctx, f.adminAcct, f.bidderAcct, weight))

	require.Len(t, f.journal.entries, 1)
	entry := f.journal.entries[0]
	require.Equal(t, "trust_changed", entry.Kind)
	require.Equal(t, 0, entry.Seq)
	require.NotEqual(t, [16]byte{}, [16]byte(entry.OpID))
	require.Equal(t, domain.Timestamp(1_000_000), entry.LogicalTS)

	require.Len(t, f.bus.published["chit:trust"], 1)
	require.Len(t, f.bus.stream, 1)
}

func TestApplyAssignsOneOpIDPerOperation(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	weight, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(25), fixed.FromUint64(100))
	require.NoError(t, err)
	require.NoError(t, f.oracle.SetTrust(ctx, f.adminAcct, f.operatorAcct, weight))
	require.NoError(t, f.oracle.SetTrust(ctx, f.adminAcct, f.bidderAcct, weight))

	require.Len(t, f.journal.entries, 2)
	require.NotEqual(t, f.journal.entries[0].OpID, f.journal.entries[1].OpID)
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	weight := fixed.Scale()
	err := f.oracle.SetTrust(ctx, f.bidderAcct, f.operatorAcct, weight)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	require.Empty(t, f.journal.entries)
	require.Empty(t, f.bus.published)
	require.Empty(t, f.bus.stream)
}

func TestScoreCacheRoundTrip(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	first, err := f.oracle.Score(ctx, f.bidderAcct)
	require.NoError(t, err)
	require.Equal(t, 0, f.scores.hits)

	second, err := f.oracle.Score(ctx, f.bidderAcct)
	require.NoError(t, err)
	require.Equal(t, 1, f.scores.hits)
	require.Equal(t, first, second)
}

func TestOracleWriteInvalidatesScoreCache(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	_, err := f.oracle.Score(ctx, f.bidderAcct)
	require.NoError(t, err)
	require.Contains(t, f.scores.snaps, f.bidderAcct)

	require.NoError(t, f.oracle.RecordOutcome(ctx, f.adminAcct, f.bidderAcct, true))
	require.NotContains(t, f.scores.snaps, f.bidderAcct)

	// Recompute reflects the new outcome.
	snap, err := f.oracle.Score(ctx, f.bidderAcct)
	require.NoError(t, err)
	twoThirds, err := fixed.MulDiv(fixed.Scale(), fixed.FromUint64(2), fixed.FromUint64(3))
	require.NoError(t, err)
	require.Equal(t, twoThirds.Dec(), snap.Bayesian)
}

func TestPoolLifecycleThroughServices(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	require.NoError(t, f.admin.GrantRole(ctx, f.adminAcct, f.operatorAcct, domain.RoleOperator))

	size, err := fixed.FromTokens(100)
	require.NoError(t, err)
	poolID, err := f.fund.CreatePool(ctx, f.operatorAcct, size, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(1), poolID)

	deposit, err := fixed.FromTokens(5)
	require.NoError(t, err)
	require.NoError(t, f.fund.DepositPremium(ctx, f.bidderAcct, poolID, deposit))

	pool, err := f.fund.Pool(ctx, poolID)
	require.NoError(t, err)
	require.Equal(t, f.operatorAcct, pool.Operator)
	require.True(t, pool.PremiumBalance.Eq(&deposit))

	require.Len(t, f.bus.published["chit:pool"], 2)

	_, err = f.fund.Pool(ctx, 42)
	require.ErrorIs(t, err, domain.ErrPoolNotFound)
}

func TestCloseAuctionArchivesSnapshot(t *testing.T) {
	f := newShellFixture(t)
	ctx := context.Background()

	require.NoError(t, f.admin.GrantRole(ctx, f.adminAcct, f.operatorAcct, domain.RoleOperator))
	require.NoError(t, f.admin.GrantRole(ctx, f.adminAcct, f.bidderAcct, domain.RoleParticipant))

	size, err := fixed.FromTokens(100)
	require.NoError(t, err)
	poolID, err := f.fund.CreatePool(ctx, f.operatorAcct, size, 4)
	require.NoError(t, err)

	auctionID, err := f.fund.CreateAuction(ctx, f.operatorAcct, poolID, 60, 60)
	require.NoError(t, err)

	bid, err := fixed.FromTokens(2)
	require.NoError(t, err)
	commit := crypto.CommitHash(bid, "hunter2")
	require.NoError(t, f.fund.CommitBid(ctx, f.bidderAcct, auctionID, commit))

	f.clock.Advance(60)
	require.NoError(t, f.fund.RevealBid(ctx, f.bidderAcct, auctionID, bid, "hunter2"))

	f.clock.Advance(60)
	require.NoError(t, f.fund.CloseAuction(ctx, f.bidderAcct, auctionID))

	auction, phase, err := f.fund.Auction(ctx, auctionID)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseClosed, phase)
	require.NotNil(t, auction.Winner)
	require.Equal(t, f.bidderAcct, *auction.Winner)

	require.Len(t, f.archive.rows, 1)
	require.Len(t, f.archiver.blobs, 1)
	require.Equal(t, auctionID, f.archive.rows[0].ID)
	require.Equal(t, auctionID, f.archiver.blobs[0].ID)
	require.True(t, f.archiver.blobs[0].Closed)
}
