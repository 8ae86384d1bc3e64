// Package normalizer convierte el payload del proveedor en líneas canónicas
// agrupadas por mercado. Es un mapeo puro: no guarda estado entre pasadas.
package normalizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Normalizer filtra por la allow-list de libros y mapea claves del proveedor.
type Normalizer struct {
	allow map[domain.Bookmaker]struct{}
	now   func() time.Time
}

// New crea un Normalizer. Una allow-list vacía no deja pasar ningún libro;
// config la rechaza antes de llegar aquí.
func New(allow []domain.Bookmaker) *Normalizer {
	return NewWithClock(allow, time.Now)
}

// NewWithClock permite fijar el reloj usado cuando el proveedor no trae last_update.
func NewWithClock(allow []domain.Bookmaker, now func() time.Time) *Normalizer {
	set := make(map[domain.Bookmaker]struct{}, len(allow))
	for _, b := range allow {
		set[b] = struct{}{}
	}
	return &Normalizer{allow: set, now: now}
}

// Result es el resultado de normalizar un evento.
type Result struct {
	Game    domain.GameInfo
	Markets []domain.Market
	Lines   int // líneas producidas
	Skipped int // ítems descartados (claves desconocidas, precios inválidos)
}

// Normalize procesa un evento. Solo devuelve error si el evento entero es
// inservible (deporte no soportado, sin id); cualquier problema dentro de un
// bookmaker, mercado u outcome se descarta y se cuenta en Skipped.
func (n *Normalizer) Normalize(ev domain.FeedEvent) (Result, error) {
	sport, err := LookupSport(ev.SportKey)
	if err != nil {
		return Result{}, fmt.Errorf("normalizer.Normalize: event %s: %w", ev.ID, err)
	}
	if ev.ID == "" {
		return Result{}, fmt.Errorf("normalizer.Normalize: event without id: %w", domain.ErrDegenerateMarket)
	}

	res := Result{Game: domain.GameInfo{
		ID:        ev.ID,
		Sport:     sport,
		HomeTeam:  ev.HomeTeam,
		AwayTeam:  ev.AwayTeam,
		StartTime: ev.CommenceTime,
	}}
	now := n.now()
	g := newGrouper(res.Game)

	for _, bm := range ev.Bookmakers {
		book, err := LookupBookmaker(bm.Key)
		if err != nil {
			slog.Debug("unsupported bookmaker", "event", ev.ID, "key", bm.Key)
			res.Skipped++
			continue
		}
		if _, ok := n.allow[book]; !ok {
			continue
		}

		for _, mkt := range bm.Markets {
			betType, err := LookupBetType(mkt.Key)
			if err != nil {
				slog.Debug("unsupported market", "event", ev.ID, "bookmaker", bm.Key, "key", mkt.Key)
				res.Skipped++
				continue
			}
			observed := firstNonZero(mkt.LastUpdate, bm.LastUpdate, now)

			for _, out := range mkt.Outcomes {
				line, err := newLine(book, out, observed)
				if err != nil {
					slog.Debug("invalid outcome skipped",
						"event", ev.ID, "bookmaker", bm.Key, "market", mkt.Key, "err", err)
					res.Skipped++
					continue
				}
				g.add(betType, mkt.Key, line)
				res.Lines++
			}
		}
	}

	res.Markets = g.markets()
	return res, nil
}

func newLine(book domain.Bookmaker, out domain.FeedOutcome, observed time.Time) (domain.SportsbookLine, error) {
	name := strings.TrimSpace(out.Name)
	if name == "" {
		return domain.SportsbookLine{}, errors.New("empty outcome name")
	}
	if out.Point != nil && (math.IsNaN(*out.Point) || math.IsInf(*out.Point, 0)) {
		return domain.SportsbookLine{}, fmt.Errorf("point %v: %w", *out.Point, domain.ErrInvalidOdds)
	}
	odds, err := domain.NewOddsFromDecimal(out.Price)
	if err != nil {
		return domain.SportsbookLine{}, err
	}
	var point *float64
	if out.Point != nil {
		p := *out.Point
		point = &p
	}
	return domain.SportsbookLine{
		Bookmaker:   book,
		Outcome:     name,
		Description: strings.TrimSpace(out.Description),
		Odds:        odds,
		Point:       point,
		ObservedAt:  observed,
	}, nil
}

func firstNonZero(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t.UTC()
		}
	}
	return time.Time{}
}

// --- agrupación ---

// groupKey identifica un conjunto de outcomes mutuamente excluyentes.
type groupKey struct {
	betType   domain.BetType
	marketKey string
	player    string
	// line es el punto visto desde el local en spreads, el punto en totals y props.
	line float64
}

type outcomeKey struct {
	name   string
	player string
	point  float64
	hasPt  bool
}

type group struct {
	key      groupKey
	outcomes map[outcomeKey]*domain.MarketOutcome
	// libro → índice en Lines, para quedarse con una sola línea por libro
	books map[outcomeKey]map[domain.Bookmaker]int
}

type grouper struct {
	game   domain.GameInfo
	groups map[groupKey]*group
}

func newGrouper(game domain.GameInfo) *grouper {
	return &grouper{game: game, groups: make(map[groupKey]*group)}
}

func (g *grouper) add(betType domain.BetType, marketKey string, l domain.SportsbookLine) {
	gk := groupKey{betType: betType, marketKey: marketKey}
	switch betType {
	case domain.BetTypeSpread:
		gk.line = l.PointValue()
		if l.Outcome == g.game.AwayTeam {
			gk.line = -gk.line
		}
	case domain.BetTypeTotals:
		gk.line = l.PointValue()
	case domain.BetTypeProps:
		gk.player = l.Description
		gk.line = l.PointValue()
	}

	grp, ok := g.groups[gk]
	if !ok {
		grp = &group{
			key:      gk,
			outcomes: make(map[outcomeKey]*domain.MarketOutcome),
			books:    make(map[outcomeKey]map[domain.Bookmaker]int),
		}
		g.groups[gk] = grp
	}

	okey := outcomeKey{name: l.Outcome, player: l.Description, point: l.PointValue(), hasPt: l.Point != nil}
	out, ok := grp.outcomes[okey]
	if !ok {
		out = &domain.MarketOutcome{Name: l.Outcome, Description: l.Description, Point: l.Point}
		grp.outcomes[okey] = out
		grp.books[okey] = make(map[domain.Bookmaker]int)
	}
	if i, dup := grp.books[okey][l.Bookmaker]; dup {
		if l.ObservedAt.After(out.Lines[i].ObservedAt) {
			out.Lines[i] = l
		}
		return
	}
	grp.books[okey][l.Bookmaker] = len(out.Lines)
	out.Lines = append(out.Lines, l)
}

// markets devuelve los grupos ordenados de forma determinista.
func (g *grouper) markets() []domain.Market {
	groups := make([]*group, 0, len(g.groups))
	for _, grp := range g.groups {
		groups = append(groups, grp)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].key, groups[j].key
		if a.betType != b.betType {
			return a.betType < b.betType
		}
		if a.marketKey != b.marketKey {
			return a.marketKey < b.marketKey
		}
		if a.player != b.player {
			return a.player < b.player
		}
		return a.line < b.line
	})

	out := make([]domain.Market, 0, len(groups))
	for _, grp := range groups {
		m := domain.Market{Game: g.game, BetType: grp.key.betType, MarketKey: grp.key.marketKey}
		for _, o := range grp.outcomes {
			m.Outcomes = append(m.Outcomes, *o)
		}
		sort.Slice(m.Outcomes, func(i, j int) bool {
			ri, rj := g.rank(m.Outcomes[i].Name), g.rank(m.Outcomes[j].Name)
			if ri != rj {
				return ri < rj
			}
			return m.Outcomes[i].Selection() < m.Outcomes[j].Selection()
		})
		out = append(out, m)
	}
	return out
}

// rank ordena local/Over primero y visitante/Under segundo.
func (g *grouper) rank(name string) int {
	switch {
	case name == g.game.HomeTeam, strings.EqualFold(name, "Over"):
		return 0
	case name == g.game.AwayTeam, strings.EqualFold(name, "Under"):
		return 1
	}
	return 2
}
