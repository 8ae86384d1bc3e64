package scanner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/alejandrodnm/oddsignal/internal/normalizer"
	"github.com/alejandrodnm/oddsignal/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockFeed struct {
	mu     sync.Mutex
	events map[string][]domain.FeedEvent
	errs   map[string]error
	block  bool
	calls  atomic.Int64
}

func (m *mockFeed) FetchEvents(ctx context.Context, sportKey string) ([]domain.FeedEvent, error) {
	m.calls.Add(1)
	m.mu.Lock()
	block, err, events := m.block, m.errs[sportKey], m.events[sportKey]
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return events, err
}

func (m *mockFeed) setErr(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.errs = map[string]error{}
	}
	m.errs[key] = err
}

type mockNotifier struct {
	mu       sync.Mutex
	notified []*domain.Snapshot
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, snap)
	return m.err
}

type mockStorage struct {
	mu    sync.Mutex
	saved []*domain.Snapshot
	err   error
}

func (m *mockStorage) SaveSnapshot(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snap)
	return m.err
}

func (m *mockStorage) GetHistory(_ context.Context, _, _ time.Time) ([]domain.EVOpportunity, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

type mockPublisher struct {
	mu        sync.Mutex
	published []*domain.Snapshot
}

func (m *mockPublisher) Publish(_ context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, snap)
	return nil
}

type mockMetrics struct {
	mu          sync.Mutex
	cycles      int
	fetchErrors map[string]int
	skipped     int
}

func (m *mockMetrics) RecordCycle(_ domain.Sport, _ time.Duration, _ *domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
}

func (m *mockMetrics) RecordFetchError(_ domain.Sport, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErrors == nil {
		m.fetchErrors = map[string]int{}
	}
	m.fetchErrors[kind]++
}

func (m *mockMetrics) RecordSkipped(_ domain.Sport, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += n
}

func (m *mockMetrics) RecordSnapshotAge(_ domain.Sport, _ time.Duration) {}

// --- helpers ---

var fixedNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// nbaEvent: DraftKings paga 2.80 al local y FanDuel 1.667 al visitante, lo que
// deja un arbitraje y EV positivo en el local.
func nbaEvent() domain.FeedEvent {
	return domain.FeedEvent{
		ID:           "evt1",
		SportKey:     "basketball_nba",
		HomeTeam:     "Boston Celtics",
		AwayTeam:     "Los Angeles Lakers",
		CommenceTime: fixedNow.Add(2 * time.Hour),
		Bookmakers: []domain.FeedBookmaker{
			{Key: "draftkings", LastUpdate: fixedNow.Add(-time.Minute), Markets: []domain.FeedMarket{
				{Key: "h2h", Outcomes: []domain.FeedOutcome{
					{Name: "Boston Celtics", Price: 2.80},
					{Name: "Los Angeles Lakers", Price: 1.55},
				}},
			}},
			{Key: "fanduel", LastUpdate: fixedNow.Add(-time.Minute), Markets: []domain.FeedMarket{
				{Key: "h2h", Outcomes: []domain.FeedOutcome{
					{Name: "Boston Celtics", Price: 2.10},
					{Name: "Los Angeles Lakers", Price: 1.667},
				}},
				{Key: "outrights", Outcomes: []domain.FeedOutcome{{Name: "Boston Celtics", Price: 5}}},
			}},
		},
	}
}

type fixture struct {
	scanner   *scanner.Scanner
	feed      *mockFeed
	notifier  *mockNotifier
	storage   *mockStorage
	publisher *mockPublisher
	metrics   *mockMetrics
	clock     *clock
}

func newFixture(t *testing.T, mutate func(*scanner.Config)) *fixture {
	t.Helper()
	f := &fixture{
		feed:      &mockFeed{events: map[string][]domain.FeedEvent{"basketball_nba": {nbaEvent()}}},
		notifier:  &mockNotifier{},
		storage:   &mockStorage{},
		publisher: &mockPublisher{},
		metrics:   &mockMetrics{},
		clock:     &clock{now: fixedNow},
	}
	cfg := scanner.DefaultConfig()
	cfg.Sports = []domain.Sport{domain.SportNBA}
	cfg.Interval = time.Minute
	cfg.StaleTTL = 3 * time.Minute
	if mutate != nil {
		mutate(&cfg)
	}
	norm := normalizer.NewWithClock(domain.Bookmakers(), f.clock.Now)

	s, err := scanner.New(cfg, f.feed, norm, f.storage, f.notifier,
		scanner.WithPublisher(f.publisher),
		scanner.WithMetrics(f.metrics),
		scanner.WithClock(f.clock.Now),
	)
	require.NoError(t, err)
	f.scanner = s
	return f
}

// --- tests ---

func TestScanner_RunOnce_Success(t *testing.T) {
	f := newFixture(t, nil)

	snap, err := f.scanner.RunOnce(context.Background(), domain.SportNBA)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, domain.SportNBA, snap.Sport)
	assert.Equal(t, 1, snap.Events)
	assert.Equal(t, fixedNow, snap.UpdatedAt)
	require.NotEmpty(t, snap.Opportunities)
	assert.Equal(t, "evt1_h2h_Boston_Celtics", snap.Opportunities[0].ID)
	require.Len(t, snap.Arbitrages, 1)
	assert.InDelta(t, 4.30, snap.Arbitrages[0].ProfitPercentage, 0.01)

	assert.Len(t, f.notifier.notified, 1)
	assert.Len(t, f.storage.saved, 1)
	assert.Len(t, f.publisher.published, 1)
	assert.Equal(t, 1, f.metrics.cycles)
	assert.Equal(t, 1, f.metrics.skipped, "unsupported market counted")

	state, err := f.scanner.State(domain.SportNBA)
	require.NoError(t, err)
	assert.Equal(t, scanner.StateReady, state)

	view, err := f.scanner.Opportunities(domain.SportNBA, scanner.Filter{})
	require.NoError(t, err)
	assert.True(t, view.Ready)
	assert.False(t, view.Stale)
	assert.Equal(t, fixedNow, view.LastUpdated)
	assert.Equal(t, snap.Opportunities, view.Items)
}

func TestScanner_OpportunitiesSorted(t *testing.T) {
	f := newFixture(t, nil)
	snap, err := f.scanner.RunOnce(context.Background(), domain.SportNBA)
	require.NoError(t, err)

	for i := 1; i < len(snap.Opportunities); i++ {
		assert.GreaterOrEqual(t, snap.Opportunities[i-1].EstimatedEV, snap.Opportunities[i].EstimatedEV)
	}
}

func TestScanner_UntrackedSport(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.scanner.RunOnce(context.Background(), domain.SportMLB)
	assert.ErrorIs(t, err, domain.ErrUntrackedSport)

	_, err = f.scanner.Opportunities(domain.SportMLB, scanner.Filter{})
	assert.ErrorIs(t, err, domain.ErrUntrackedSport)

	_, err = f.scanner.State(domain.SportMLB)
	assert.ErrorIs(t, err, domain.ErrUntrackedSport)
}

func TestScanner_NoSnapshotYet(t *testing.T) {
	f := newFixture(t, nil)

	view, err := f.scanner.Opportunities(domain.SportNBA, scanner.Filter{})
	require.NoError(t, err)
	assert.False(t, view.Ready)
	assert.True(t, view.Stale)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)

	state, err := f.scanner.State(domain.SportNBA)
	require.NoError(t, err)
	assert.Equal(t, scanner.StateIdle, state)
}

func TestScanner_FetchFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.scanner.RunOnce(ctx, domain.SportNBA)
	require.NoError(t, err)

	f.feed.setErr("basketball_nba", errors.New("connection reset"))
	f.clock.Advance(time.Minute)

	_, err = f.scanner.RunOnce(ctx, domain.SportNBA)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.Equal(t, 1, f.metrics.fetchErrors["unavailable"])

	view, err := f.scanner.Opportunities(domain.SportNBA, scanner.Filter{})
	require.NoError(t, err)
	assert.True(t, view.Ready)
	assert.False(t, view.Stale, "1m old, ttl 3m")
	assert.Equal(t, first.Opportunities, view.Items)
	assert.Equal(t, time.Minute, view.Age)

	f.clock.Advance(3 * time.Minute)
	view, err = f.scanner.Opportunities(domain.SportNBA, scanner.Filter{})
	require.NoError(t, err)
	assert.True(t, view.Stale)
	assert.Equal(t, first.Opportunities, view.Items)

	status := f.scanner.Status()
	require.Len(t, status, 1)
	assert.Equal(t, int64(1), status[0].Failures)
	assert.Contains(t, status[0].LastError, "connection reset")
	assert.Equal(t, scanner.StateReady, status[0].State)

	// solo se notifica el ciclo que publicó
	assert.Len(t, f.notifier.notified, 1)
}

func TestScanner_FetchTimeout(t *testing.T) {
	f := newFixture(t, func(c *scanner.Config) { c.FetchTimeout = 20 * time.Millisecond })
	f.feed.block = true

	_, err := f.scanner.RunOnce(context.Background(), domain.SportNBA)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedTimeout)
	assert.Equal(t, 1, f.metrics.fetchErrors["timeout"])

	snap, err := f.scanner.Snapshot(domain.SportNBA)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestScanner_NotifierErrorDoesNotFailCycle(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("stdout closed")
	f.storage.err = errors.New("disk full")

	snap, err := f.scanner.RunOnce(context.Background(), domain.SportNBA)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Len(t, f.publisher.published, 1)
}

func TestScanner_ReadFilters(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.scanner.RunOnce(context.Background(), domain.SportNBA)
	require.NoError(t, err)

	view, err := f.scanner.Opportunities(domain.SportNBA, scanner.Filter{MinEV: 1000})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Ready)

	arbs, err := f.scanner.Arbitrage(domain.SportNBA, 4)
	require.NoError(t, err)
	assert.Len(t, arbs.Items, 1)

	arbs, err = f.scanner.Arbitrage(domain.SportNBA, 5)
	require.NoError(t, err)
	assert.Empty(t, arbs.Items)

	parlays, err := f.scanner.Parlays(domain.SportNBA)
	require.NoError(t, err)
	assert.True(t, parlays.Ready)
	assert.Empty(t, parlays.Items, "a single game yields no cross-game parlay")
}

func TestScanner_Run_OnceIsolatesSports(t *testing.T) {
	f := newFixture(t, func(c *scanner.Config) {
		c.Sports = []domain.Sport{domain.SportNBA, domain.SportNHL}
		c.Once = true
	})
	f.feed.setErr("icehockey_nhl", errors.New("upstream 503"))

	err := f.scanner.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)

	nba, err := f.scanner.Opportunities(domain.SportNBA, scanner.Filter{})
	require.NoError(t, err)
	assert.True(t, nba.Ready)
	assert.NotEmpty(t, nba.Items)

	nhl, err := f.scanner.Opportunities(domain.SportNHL, scanner.Filter{})
	require.NoError(t, err)
	assert.False(t, nhl.Ready)
}

func TestScanner_Run_StopsOnCancel(t *testing.T) {
	f := newFixture(t, func(c *scanner.Config) {
		c.Interval = 10 * time.Millisecond
		c.Jitter = 5 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scanner.Run(ctx) }()

	require.Eventually(t, func() bool { return f.feed.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop")
	}
}

func TestScanner_Run_FirstCycleWaitsForJitter(t *testing.T) {
	f := newFixture(t, func(c *scanner.Config) {
		c.Interval = 10 * time.Millisecond
		c.Jitter = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scanner.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, f.feed.calls.Load(), "first fetch should wait for the startup jitter")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop")
	}
}

func TestNew_Errors(t *testing.T) {
	norm := normalizer.New(domain.Bookmakers())

	cfg := scanner.DefaultConfig()
	cfg.Interval = 0
	_, err := scanner.New(cfg, &mockFeed{}, norm, nil, nil)
	assert.Error(t, err)

	cfg = scanner.DefaultConfig()
	cfg.Sports = nil
	_, err = scanner.New(cfg, &mockFeed{}, norm, nil, nil)
	assert.Error(t, err)
}
