package scanner

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// View es una lectura del snapshot vigente de un deporte. Si el feed está
// degradado se sigue devolviendo el último snapshot con Stale a true.
type View[T any] struct {
	Sport       domain.Sport
	Items       []T
	LastUpdated time.Time
	Age         time.Duration
	Stale       bool
	// Ready es false mientras no se ha publicado ningún snapshot.
	Ready bool
}

// SportStatus resume el estado de un deporte para health checks.
type SportStatus struct {
	Sport       domain.Sport
	State       State
	Ready       bool
	Stale       bool
	LastUpdated time.Time
	Age         time.Duration
	Failures    int64
	LastError   string
}

// Sports devuelve los deportes seguidos en el orden configurado.
func (s *Scanner) Sports() []domain.Sport {
	out := make([]domain.Sport, len(s.order))
	copy(out, s.order)
	return out
}

// StaleTTL devuelve la antigüedad a partir de la cual un snapshot es stale.
func (s *Scanner) StaleTTL() time.Duration { return s.cfg.StaleTTL }

// State devuelve la fase actual del pipeline de un deporte.
func (s *Scanner) State(sport domain.Sport) (State, error) {
	t, ok := s.trackers[sport]
	if !ok {
		return StateIdle, fmt.Errorf("scanner.State: %s: %w", sport, domain.ErrUntrackedSport)
	}
	return t.getState(), nil
}

// Snapshot devuelve el snapshot vigente, o nil si aún no hay.
func (s *Scanner) Snapshot(sport domain.Sport) (*domain.Snapshot, error) {
	t, ok := s.trackers[sport]
	if !ok {
		return nil, fmt.Errorf("scanner.Snapshot: %s: %w", sport, domain.ErrUntrackedSport)
	}
	return t.current.Load(), nil
}

// Opportunities devuelve las oportunidades del snapshot vigente que pasan el filtro.
func (s *Scanner) Opportunities(sport domain.Sport, f Filter) (View[domain.EVOpportunity], error) {
	snap, err := s.Snapshot(sport)
	if err != nil {
		return View[domain.EVOpportunity]{}, err
	}
	var items []domain.EVOpportunity
	if snap != nil {
		items = f.Apply(snap.Opportunities)
	}
	return newView(s, sport, snap, items), nil
}

// Arbitrage devuelve los arbitrajes vigentes con beneficio >= minProfit (%).
func (s *Scanner) Arbitrage(sport domain.Sport, minProfit float64) (View[domain.ArbitrageOpportunity], error) {
	snap, err := s.Snapshot(sport)
	if err != nil {
		return View[domain.ArbitrageOpportunity]{}, err
	}
	var items []domain.ArbitrageOpportunity
	if snap != nil {
		items = filterArbitrage(snap.Arbitrages, minProfit)
	}
	return newView(s, sport, snap, items), nil
}

// Parlays devuelve las sugerencias de parlay del snapshot vigente.
func (s *Scanner) Parlays(sport domain.Sport) (View[domain.Parlay], error) {
	snap, err := s.Snapshot(sport)
	if err != nil {
		return View[domain.Parlay]{}, err
	}
	var items []domain.Parlay
	if snap != nil {
		items = snap.Parlays
	}
	return newView(s, sport, snap, items), nil
}

// Status devuelve el estado de todos los deportes seguidos.
func (s *Scanner) Status() []SportStatus {
	out := make([]SportStatus, 0, len(s.order))
	for _, sport := range s.order {
		t := s.trackers[sport]
		v := newView[struct{}](s, sport, t.current.Load(), nil)
		st := SportStatus{
			Sport:       sport,
			State:       t.getState(),
			Ready:       v.Ready,
			Stale:       v.Stale,
			LastUpdated: v.LastUpdated,
			Age:         v.Age,
			Failures:    t.failures.Load(),
		}
		if msg := t.lastErr.Load(); msg != nil {
			st.LastError = *msg
		}
		if v.Ready && s.metrics != nil {
			s.metrics.RecordSnapshotAge(sport, v.Age)
		}
		out = append(out, st)
	}
	return out
}

func newView[T any](s *Scanner, sport domain.Sport, snap *domain.Snapshot, items []T) View[T] {
	if items == nil {
		items = []T{}
	}
	v := View[T]{Sport: sport, Items: items, Stale: true}
	if snap == nil {
		return v
	}
	v.Ready = true
	v.LastUpdated = snap.UpdatedAt
	v.Age = s.now().Sub(snap.UpdatedAt)
	if v.Age < 0 {
		v.Age = 0
	}
	v.Stale = v.Age > s.cfg.StaleTTL
	return v
}
