package storage

// sqlite.go: histórico de snapshots publicados, sin ruido.
//
// Estrategia:
//   - `cycles`: resumen ligero por snapshot (conteos por confianza, mejor EV). Siempre 1 fila.
//   - `opportunities`: UNA fila por oportunidad (UPSERT por id estable), con peak_ev.
//   - `arbitrages`: UNA fila por arbitraje (UPSERT), con peak_profit.
//   - Cache en memoria: evita writes si el estado no cambió (< 5% en EV y
//     misma confianza). La mayoría de ciclos no cambia casi nada.
//   - Prune automático al arrancar: cycles > 30d, oportunidades no vistas en 14d.
//   - Los timestamps se guardan como texto UTC de ancho fijo para que el
//     orden lexicográfico coincida con el cronológico.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen ligero por snapshot publicado
CREATE TABLE IF NOT EXISTS cycles (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id   TEXT    NOT NULL,
    sport         TEXT    NOT NULL,
    published_at  TEXT    NOT NULL,
    events        INTEGER NOT NULL DEFAULT 0,
    opportunities INTEGER NOT NULL DEFAULT 0,
    high          INTEGER NOT NULL DEFAULT 0,
    medium        INTEGER NOT NULL DEFAULT 0,
    low           INTEGER NOT NULL DEFAULT 0,
    arbitrages    INTEGER NOT NULL DEFAULT 0,
    parlays       INTEGER NOT NULL DEFAULT 0,
    best_ev       REAL    NOT NULL DEFAULT 0
);

-- Una fila por oportunidad EV, sin duplicados
CREATE TABLE IF NOT EXISTS opportunities (
    id               TEXT PRIMARY KEY,
    sport            TEXT    NOT NULL,
    event_id         TEXT    NOT NULL,
    home_team        TEXT,
    away_team        TEXT,
    commence_time    TEXT,
    bet_type         TEXT    NOT NULL,
    market_key       TEXT    NOT NULL,
    outcome          TEXT    NOT NULL,
    player           TEXT,
    point            REAL,
    description      TEXT,
    confidence       TEXT    NOT NULL,
    fair_probability REAL    NOT NULL DEFAULT 0,
    fair_value_mode  TEXT    NOT NULL,
    estimated_ev     REAL    NOT NULL DEFAULT 0,
    slippage_ev      REAL    NOT NULL DEFAULT 0,
    best_book        TEXT    NOT NULL,
    best_decimal     REAL    NOT NULL DEFAULT 0,
    books            INTEGER NOT NULL DEFAULT 0,
    first_seen       TEXT    NOT NULL,
    last_seen        TEXT    NOT NULL,
    peak_ev          REAL    NOT NULL DEFAULT 0
);

-- Una fila por arbitraje (mismo mercado, mismas patas)
CREATE TABLE IF NOT EXISTS arbitrages (
    id                TEXT PRIMARY KEY,
    sport             TEXT NOT NULL,
    event_id          TEXT NOT NULL,
    market_key        TEXT NOT NULL,
    profit_pct        REAL NOT NULL DEFAULT 0,
    guaranteed_profit REAL NOT NULL DEFAULT 0,
    total_stake       REAL NOT NULL DEFAULT 0,
    bets              TEXT NOT NULL,
    first_seen        TEXT NOT NULL,
    last_seen         TEXT NOT NULL,
    peak_profit       REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cycles_at  ON cycles(published_at DESC);
CREATE INDEX IF NOT EXISTS idx_opp_sport  ON opportunities(sport);
CREATE INDEX IF NOT EXISTS idx_opp_last   ON opportunities(last_seen DESC);
CREATE INDEX IF NOT EXISTS idx_opp_ev     ON opportunities(estimated_ev DESC);
CREATE INDEX IF NOT EXISTS idx_arb_last   ON arbitrages(last_seen DESC);
`

const (
	retentionCycles = 30 * 24 * time.Hour // ciclos: 30 días
	retentionOpps   = 14 * 24 * time.Hour // oportunidades y arbitrajes: 14 días
	evChangePct     = 0.05                // 5% de cambio en EV → reescribir

	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// cachedState es el último estado guardado de una oportunidad.
type cachedState struct {
	confidence string
	ev         float64
}

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db    *sql.DB
	now   func() time.Time
	cache map[string]cachedState // id → estado guardado
	arbs  map[string]float64     // id → profit guardado
	mu    sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema, limpia datos antiguos y precarga la cache.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{
		db:    db,
		now:   time.Now,
		cache: make(map[string]cachedState),
		arbs:  make(map[string]float64),
	}
	s.pruneOld(context.Background())
	s.warmCache(context.Background())
	return s, nil
}

// SaveSnapshot persiste el resumen del ciclo y hace upsert de las
// oportunidades y arbitrajes que cambiaron respecto al ciclo anterior.
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return nil
	}
	published := formatTime(snap.UpdatedAt)

	// 1. Resumen del ciclo: siempre una fila
	high, medium, low := snap.Summary()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles (snapshot_id, sport, published_at, events, opportunities, high, medium, low, arbitrages, parlays, best_ev)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.Sport.String(), published, snap.Events, len(snap.Opportunities),
		high, medium, low, len(snap.Arbitrages), len(snap.Parlays), bestEV(snap.Opportunities),
	); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: insert cycle: %w", err)
	}

	// 2. Upsert de lo que cambió
	opps := s.filterChanged(snap.Opportunities)
	arbs := s.filterChangedArbs(snap.Arbitrages)
	if len(opps) == 0 && len(arbs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertOpportunities(ctx, tx, opps, published); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: %w", err)
	}
	if err := upsertArbitrages(ctx, tx, arbs, published); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: commit: %w", err)
	}
	return nil
}

func upsertOpportunities(ctx context.Context, tx *sql.Tx, opps []domain.EVOpportunity, seen string) error {
	if len(opps) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities
			(id, sport, event_id, home_team, away_team, commence_time, bet_type,
			 market_key, outcome, player, point, description, confidence,
			 fair_probability, fair_value_mode, estimated_ev, slippage_ev,
			 best_book, best_decimal, books, first_seen, last_seen, peak_ev)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			commence_time    = excluded.commence_time,
			description      = excluded.description,
			confidence       = excluded.confidence,
			fair_probability = excluded.fair_probability,
			fair_value_mode  = excluded.fair_value_mode,
			estimated_ev     = excluded.estimated_ev,
			slippage_ev      = excluded.slippage_ev,
			best_book        = excluded.best_book,
			best_decimal     = excluded.best_decimal,
			books            = excluded.books,
			last_seen        = excluded.last_seen,
			peak_ev          = MAX(peak_ev, excluded.estimated_ev)
	`)
	if err != nil {
		return fmt.Errorf("prepare opportunities: %w", err)
	}
	defer stmt.Close()

	for _, o := range opps {
		if _, err := stmt.ExecContext(ctx,
			o.ID,
			o.Sport.String(),
			o.Game.ID,
			o.Game.HomeTeam,
			o.Game.AwayTeam,
			formatTime(o.Game.StartTime),
			o.BetType.String(),
			o.MarketKey,
			o.Outcome,
			o.Player,
			nullPoint(o.Point),
			o.OutcomeDescription,
			o.Confidence.String(),
			o.FairProbability,
			o.FairValueMode.String(),
			o.EstimatedEV,
			o.SlippageAdjustedEV,
			o.BestBook.String(),
			o.BestOdds.Decimal,
			len(o.Lines),
			seen, // first_seen: ignorado en ON CONFLICT
			seen, // last_seen
			o.EstimatedEV,
		); err != nil {
			return fmt.Errorf("upsert opportunity %s: %w", o.ID, err)
		}
	}
	return nil
}

func upsertArbitrages(ctx context.Context, tx *sql.Tx, arbs []domain.ArbitrageOpportunity, seen string) error {
	if len(arbs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO arbitrages
			(id, sport, event_id, market_key, profit_pct, guaranteed_profit,
			 total_stake, bets, first_seen, last_seen, peak_profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profit_pct        = excluded.profit_pct,
			guaranteed_profit = excluded.guaranteed_profit,
			total_stake       = excluded.total_stake,
			bets              = excluded.bets,
			last_seen         = excluded.last_seen,
			peak_profit       = MAX(peak_profit, excluded.profit_pct)
	`)
	if err != nil {
		return fmt.Errorf("prepare arbitrages: %w", err)
	}
	defer stmt.Close()

	for _, a := range arbs {
		bets, err := json.Marshal(a.Bets)
		if err != nil {
			return fmt.Errorf("marshal bets %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Sport.String(), a.Game.ID, a.MarketKey,
			a.ProfitPercentage, a.GuaranteedProfit, a.TotalStake, string(bets),
			seen, seen, a.ProfitPercentage,
		); err != nil {
			return fmt.Errorf("upsert arbitrage %s: %w", a.ID, err)
		}
	}
	return nil
}

// GetHistory devuelve las oportunidades cuyo last_seen está en el rango dado,
// ordenadas por EV desc. DetectedAt es el last_seen guardado; Lines no se persiste.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.EVOpportunity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sport, event_id, home_team, away_team, commence_time, bet_type,
		       market_key, outcome, player, point, description, confidence,
		       fair_probability, fair_value_mode, estimated_ev, slippage_ev,
		       best_book, best_decimal, last_seen
		FROM opportunities
		WHERE last_seen BETWEEN ? AND ?
		ORDER BY estimated_ev DESC, id ASC
	`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var opps []domain.EVOpportunity
	for rows.Next() {
		var (
			o                                domain.EVOpportunity
			sport, betType, conf, mode, book string
			commence, lastSeen               string
			home, away, player, description  sql.NullString
			point                            sql.NullFloat64
			bestDecimal                      float64
		)
		if err := rows.Scan(
			&o.ID, &sport, &o.Game.ID, &home, &away, &commence, &betType,
			&o.MarketKey, &o.Outcome, &player, &point, &description, &conf,
			&o.FairProbability, &mode, &o.EstimatedEV, &o.SlippageAdjustedEV,
			&book, &bestDecimal, &lastSeen,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}

		// los enums se escribieron con String(); un valor desconocido queda en cero
		o.Sport, _ = domain.ParseSport(sport)
		o.BetType, _ = domain.ParseBetType(betType)
		o.Confidence, _ = domain.ParseConfidence(conf)
		o.BestBook, _ = domain.ParseBookmaker(book)
		if mode == domain.FairValueRawImplied.String() {
			o.FairValueMode = domain.FairValueRawImplied
		}
		o.BestOdds, _ = domain.NewOddsFromDecimal(bestDecimal)
		o.Game.Sport = o.Sport
		o.Game.HomeTeam = home.String
		o.Game.AwayTeam = away.String
		o.Game.StartTime = parseTime(commence)
		o.Player = player.String
		o.OutcomeDescription = description.String
		if point.Valid {
			p := point.Float64
			o.Point = &p
		}
		o.DetectedAt = parseTime(lastSeen)
		opps = append(opps, o)
	}

	return opps, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// filterChanged devuelve las oportunidades que cambiaron respecto al estado en
// caché, y actualiza la caché con el nuevo estado.
func (s *SQLiteStorage) filterChanged(opps []domain.EVOpportunity) []domain.EVOpportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toWrite []domain.EVOpportunity
	for _, o := range opps {
		conf := o.Confidence.String()
		if prev, ok := s.cache[o.ID]; ok {
			unchanged := prev.confidence == conf && relChange(prev.ev, o.EstimatedEV) < evChangePct
			if unchanged {
				continue
			}
		}
		toWrite = append(toWrite, o)
		s.cache[o.ID] = cachedState{confidence: conf, ev: o.EstimatedEV}
	}
	return toWrite
}

func (s *SQLiteStorage) filterChangedArbs(arbs []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toWrite []domain.ArbitrageOpportunity
	for _, a := range arbs {
		if prev, ok := s.arbs[a.ID]; ok && relChange(prev, a.ProfitPercentage) < evChangePct {
			continue
		}
		toWrite = append(toWrite, a)
		s.arbs[a.ID] = a.ProfitPercentage
	}
	return toWrite
}

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := s.now().UTC()
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE published_at < ?`, formatTime(now.Add(-retentionCycles)))
	s.db.ExecContext(ctx, `DELETE FROM opportunities WHERE last_seen < ?`, formatTime(now.Add(-retentionOpps)))
	s.db.ExecContext(ctx, `DELETE FROM arbitrages WHERE last_seen < ?`, formatTime(now.Add(-retentionOpps)))
}

// warmCache precarga la caché desde la DB al arrancar, evitando escrituras
// redundantes en el primer ciclo tras un reinicio.
func (s *SQLiteStorage) warmCache(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, confidence, estimated_ev FROM opportunities`)
	if err != nil {
		return
	}
	for rows.Next() {
		var id, conf string
		var ev float64
		if rows.Scan(&id, &conf, &ev) == nil {
			s.cache[id] = cachedState{confidence: conf, ev: ev}
		}
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT id, profit_pct FROM arbitrages`)
	if err != nil {
		return
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var profit float64
		if rows.Scan(&id, &profit) == nil {
			s.arbs[id] = profit
		}
	}
}

// bestEV devuelve el mayor EV del snapshot.
func bestEV(opps []domain.EVOpportunity) float64 {
	var best float64
	for _, o := range opps {
		if o.EstimatedEV > best {
			best = o.EstimatedEV
		}
	}
	return best
}

// relChange devuelve el cambio relativo entre dos valores (0.0 – ∞).
func relChange(old, new float64) float64 {
	if old == 0 {
		return 1.0 // forzar escritura si antes era 0
	}
	return math.Abs(new-old) / math.Abs(old)
}

func nullPoint(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
