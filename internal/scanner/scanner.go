package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/alejandrodnm/oddsignal/internal/normalizer"
	"github.com/alejandrodnm/oddsignal/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	Sports       []domain.Sport
	Interval     time.Duration
	Jitter       time.Duration
	FetchTimeout time.Duration
	// StaleTTL: un snapshot más viejo que esto se marca stale en las lecturas.
	StaleTTL     time.Duration
	Workers      int
	TotalStake   float64
	MinArbProfit float64
	Scoring      domain.ScoringConfig
	Parlay       ParlayBuilderConfig
	// Once ejecuta un único ciclo por deporte y termina.
	Once bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Sports:       []domain.Sport{domain.SportNBA, domain.SportNHL},
		Interval:     45 * time.Second,
		Jitter:       5 * time.Second,
		FetchTimeout: 10 * time.Second,
		StaleTTL:     135 * time.Second,
		TotalStake:   defaultTotalStake,
		Scoring:      domain.DefaultScoringConfig(),
		Parlay:       DefaultParlayBuilderConfig(),
	}
}

// State es la fase del pipeline de un deporte.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateNormalizing
	StateScoring
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateNormalizing:
		return "normalizing"
	case StateScoring:
		return "scoring"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// tracker es el dueño único del snapshot de un deporte. Solo la goroutine del
// deporte escribe; los lectores cargan el puntero atómico.
type tracker struct {
	sport    domain.Sport
	key      string
	state    atomic.Int32
	current  atomic.Pointer[domain.Snapshot]
	failures atomic.Int64
	lastErr  atomic.Pointer[string]

	// arbitrajes del ciclo anterior; solo lo toca el dueño
	seenArbs map[string]struct{}
}

func (t *tracker) setState(s State) { t.state.Store(int32(s)) }
func (t *tracker) getState() State  { return State(t.state.Load()) }

// Option configura dependencias opcionales del Scanner.
type Option func(*Scanner)

// WithPublisher replica cada snapshot publicado.
func WithPublisher(p ports.SnapshotPublisher) Option {
	return func(s *Scanner) { s.publisher = p }
}

// WithMetrics registra métricas de cada ciclo.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock fija el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// Scanner es el orquestador: un pipeline independiente por deporte.
type Scanner struct {
	cfg       Config
	feed      ports.FeedProvider
	norm      *normalizer.Normalizer
	storage   ports.Storage
	notifier  ports.Notifier
	publisher ports.SnapshotPublisher
	metrics   ports.MetricsRecorder
	analyzer  *Analyzer
	parlays   *ParlayBuilder
	now       func() time.Time

	// el mapa se construye en New y no cambia
	trackers map[domain.Sport]*tracker
	order    []domain.Sport
}

// New crea un Scanner con todas las dependencias inyectadas. storage y
// notifier pueden ser nil.
func New(
	cfg Config,
	feed ports.FeedProvider,
	norm *normalizer.Normalizer,
	storage ports.Storage,
	notifier ports.Notifier,
	opts ...Option,
) (*Scanner, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scanner.New: interval %v must be positive", cfg.Interval)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.Interval
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = 3 * cfg.Interval
	}

	s := &Scanner{
		cfg:      cfg,
		feed:     feed,
		norm:     norm,
		storage:  storage,
		notifier: notifier,
		analyzer: NewAnalyzer(cfg.Scoring, cfg.TotalStake, cfg.MinArbProfit),
		parlays:  NewParlayBuilder(cfg.Parlay),
		now:      time.Now,
		trackers: make(map[domain.Sport]*tracker, len(cfg.Sports)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, sport := range cfg.Sports {
		if _, dup := s.trackers[sport]; dup {
			continue
		}
		key, err := normalizer.SportKey(sport)
		if err != nil {
			return nil, fmt.Errorf("scanner.New: %w", err)
		}
		s.trackers[sport] = &tracker{sport: sport, key: key, seenArbs: map[string]struct{}{}}
		s.order = append(s.order, sport)
	}
	if len(s.order) == 0 {
		return nil, errors.New("scanner.New: no sports configured")
	}
	return s, nil
}

// Run ejecuta un loop por deporte hasta que el contexto se cancele.
// Si cfg.Once está activo, ejecuta un ciclo por deporte y devuelve los errores.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"sports", len(s.order),
		"interval", s.cfg.Interval,
		"stale_ttl", s.cfg.StaleTTL,
		"once", s.cfg.Once,
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, sport := range s.order {
		t := s.trackers[sport]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.cfg.Once {
				if _, err := s.runCycle(ctx, t); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return
			}
			s.loop(ctx, t)
		}()
	}
	wg.Wait()

	if !s.cfg.Once {
		slog.Info("scanner stopped")
	}
	return errors.Join(errs...)
}

// loop es el ciclo periódico de un deporte. Un fallo aquí no afecta al resto.
// El primer ciclo también espera un jitter para no arrancar todos a la vez.
func (s *Scanner) loop(ctx context.Context, t *tracker) {
	timer := time.NewTimer(s.jitter())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := s.runCycle(ctx, t); err != nil {
				slog.Error("scan cycle failed", "sport", t.sport, "err", err)
			}
			timer.Reset(s.cfg.Interval + s.jitter())
		}
	}
}

// jitter reparte los ciclos para que los deportes no golpeen el feed a la vez.
func (s *Scanner) jitter() time.Duration {
	if s.cfg.Jitter <= 0 {
		return 0
	}
	return rand.N(s.cfg.Jitter)
}

// RunOnce ejecuta exactamente un ciclo para el deporte y devuelve el snapshot
// publicado. No debe llamarse mientras Run está activo: cada deporte tiene un
// único escritor.
func (s *Scanner) RunOnce(ctx context.Context, sport domain.Sport) (*domain.Snapshot, error) {
	t, ok := s.trackers[sport]
	if !ok {
		return nil, fmt.Errorf("scanner.RunOnce: %s: %w", sport, domain.ErrUntrackedSport)
	}
	return s.runCycle(ctx, t)
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (s *Scanner) runCycle(ctx context.Context, t *tracker) (*domain.Snapshot, error) {
	start := time.Now()

	snap, err := s.cycle(ctx, t)
	if err != nil {
		t.failures.Add(1)
		msg := err.Error()
		t.lastErr.Store(&msg)
		if prev := t.current.Load(); prev != nil && s.metrics != nil {
			s.metrics.RecordSnapshotAge(t.sport, s.now().Sub(prev.UpdatedAt))
		}
		return nil, err
	}
	t.failures.Store(0)
	t.lastErr.Store(nil)
	s.announceArbitrage(t, snap)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, snap); err != nil {
			slog.Warn("notifier error", "sport", t.sport, "err", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.SaveSnapshot(ctx, snap); err != nil {
			slog.Warn("storage error", "sport", t.sport, "err", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, snap); err != nil {
			slog.Warn("publisher error", "sport", t.sport, "err", err)
		}
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordCycle(t.sport, duration, snap)
		s.metrics.RecordSnapshotAge(t.sport, 0)
	}

	slog.Info("scan cycle complete",
		"sport", t.sport,
		"events", snap.Events,
		"opportunities", len(snap.Opportunities),
		"arbitrages", len(snap.Arbitrages),
		"parlays", len(snap.Parlays),
		"duration", duration.Round(time.Millisecond),
	)
	return snap, nil
}

// cycle hace fetch → normalize → score → assemble y publica el snapshot.
// Si algo falla antes de publicar, el snapshot anterior sigue vigente.
func (s *Scanner) cycle(ctx context.Context, t *tracker) (*domain.Snapshot, error) {
	defer func() {
		if t.current.Load() != nil {
			t.setState(StateReady)
		} else {
			t.setState(StateIdle)
		}
	}()

	t.setState(StateFetching)
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	events, err := s.feed.FetchEvents(fetchCtx, t.key)
	cancel()
	if err != nil {
		kind, err := classifyFetchError(err)
		if s.metrics != nil {
			s.metrics.RecordFetchError(t.sport, kind)
		}
		return nil, fmt.Errorf("scanner.cycle: fetch %s: %w", t.key, err)
	}

	t.setState(StateNormalizing)
	var (
		markets []domain.Market
		skipped int
		nEvents int
	)
	for _, ev := range events {
		res, err := s.norm.Normalize(ev)
		if err != nil {
			slog.Debug("event skipped", "sport", t.sport, "event", ev.ID, "err", err)
			skipped++
			continue
		}
		if res.Game.Sport != t.sport {
			slog.Debug("event for another sport", "sport", t.sport, "event", ev.ID, "key", ev.SportKey)
			skipped++
			continue
		}
		nEvents++
		skipped += res.Skipped
		markets = append(markets, res.Markets...)
	}
	if s.metrics != nil && skipped > 0 {
		s.metrics.RecordSkipped(t.sport, skipped)
	}

	t.setState(StateScoring)
	now := s.now()
	opps, arbs, dropped := analyzeMarketsConcurrent(ctx, s.analyzer, markets, s.cfg.Workers, now)
	if err := ctx.Err(); err != nil {
		// no se publica un snapshot a medias
		return nil, fmt.Errorf("scanner.cycle: %s: %w", t.key, err)
	}
	rankOpportunities(opps)
	rankArbitrage(arbs)

	snap := &domain.Snapshot{
		ID:            uuid.New(),
		Sport:         t.sport,
		Events:        nEvents,
		Opportunities: opps,
		Arbitrages:    arbs,
		Parlays:       s.parlays.Build(opps, now),
		UpdatedAt:     now,
	}
	t.current.Store(snap)

	slog.Debug("snapshot published",
		"sport", t.sport,
		"id", snap.ID,
		"markets", len(markets),
		"skipped", skipped,
		"dropped", dropped,
	)
	return snap, nil
}

// classifyFetchError devuelve la etiqueta del fallo y el error envuelto en la
// categoría del feed.
func classifyFetchError(err error) (string, error) {
	switch {
	case errors.Is(err, domain.ErrFeedTimeout):
		return "timeout", err
	case errors.Is(err, domain.ErrFeedUnavailable):
		return "unavailable", err
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", fmt.Errorf("%w: %w", domain.ErrFeedTimeout, err)
	case errors.Is(err, context.Canceled):
		return "canceled", err
	default:
		return "unavailable", fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
	}
}

// announceArbitrage avisa en Warn de los arbitrajes que aparecen por primera vez.
func (s *Scanner) announceArbitrage(t *tracker, snap *domain.Snapshot) {
	seen := make(map[string]struct{}, len(snap.Arbitrages))
	for _, a := range snap.Arbitrages {
		seen[a.ID] = struct{}{}
		if _, ok := t.seenArbs[a.ID]; ok {
			continue
		}
		slog.Warn("arbitrage detected",
			"sport", t.sport,
			"event", a.Game.ID,
			"market", a.MarketKey,
			"profit_pct", fmt.Sprintf("%.2f", a.ProfitPercentage),
			"guaranteed_profit", fmt.Sprintf("%.2f", a.GuaranteedProfit),
		)
	}
	t.seenArbs = seen
}

// rankOpportunities ordena por EV descendente, luego confianza descendente, luego id.
func rankOpportunities(opps []domain.EVOpportunity) {
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].EstimatedEV != opps[j].EstimatedEV {
			return opps[i].EstimatedEV > opps[j].EstimatedEV
		}
		if opps[i].Confidence != opps[j].Confidence {
			return opps[i].Confidence > opps[j].Confidence
		}
		return opps[i].ID < opps[j].ID
	})
}

// rankArbitrage ordena por beneficio descendente.
func rankArbitrage(arbs []domain.ArbitrageOpportunity) {
	sort.Slice(arbs, func(i, j int) bool {
		if arbs[i].ProfitPercentage != arbs[j].ProfitPercentage {
			return arbs[i].ProfitPercentage > arbs[j].ProfitPercentage
		}
		return arbs[i].ID < arbs[j].ID
	})
}
