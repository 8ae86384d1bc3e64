package scanner

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// ParlayBuilderConfig controla cómo se sugieren parlays a partir del snapshot.
type ParlayBuilderConfig struct {
	// PoolSize: cuántas de las mejores oportunidades se consideran como patas.
	PoolSize int
	// MaxLegs: tamaño máximo de un parlay (mínimo 2).
	MaxLegs int
	// MaxSuggestions: cuántos parlays se publican por snapshot.
	MaxSuggestions int
	// DefaultCorrelation se aplica a patas de partidos distintos.
	DefaultCorrelation float64
	// SameGameFactor se aplica cuando dos patas comparten partido.
	SameGameFactor float64
	AllowSameGame  bool
	Combiner       domain.ParlayConfig
}

// DefaultParlayBuilderConfig devuelve la configuración por defecto.
func DefaultParlayBuilderConfig() ParlayBuilderConfig {
	return ParlayBuilderConfig{
		PoolSize:           8,
		MaxLegs:            3,
		MaxSuggestions:     5,
		DefaultCorrelation: 1.0,
		SameGameFactor:     0.90,
		Combiner:           domain.DefaultParlayConfig(),
	}
}

// ParlayBuilder combina las mejores oportunidades de un snapshot.
type ParlayBuilder struct {
	cfg ParlayBuilderConfig
}

// NewParlayBuilder crea un ParlayBuilder.
func NewParlayBuilder(cfg ParlayBuilderConfig) *ParlayBuilder {
	return &ParlayBuilder{cfg: cfg}
}

// Build devuelve hasta MaxSuggestions parlays con EV positivo, ordenados por
// EV descendente. opps debe venir ya ordenado.
func (b *ParlayBuilder) Build(opps []domain.EVOpportunity, now time.Time) []domain.Parlay {
	if b.cfg.MaxLegs < 2 || b.cfg.MaxSuggestions <= 0 || len(opps) < 2 {
		return nil
	}
	pool := opps
	if b.cfg.PoolSize > 0 && len(pool) > b.cfg.PoolSize {
		pool = pool[:b.cfg.PoolSize]
	}

	var result []domain.Parlay
	chosen := make([]domain.EVOpportunity, 0, b.cfg.MaxLegs)

	var walk func(start int)
	walk = func(start int) {
		if len(chosen) >= 2 {
			if p, ok := b.combine(chosen, now); ok {
				result = append(result, p)
			}
		}
		if len(chosen) == b.cfg.MaxLegs {
			return
		}
		for i := start; i < len(pool); i++ {
			if !b.compatible(chosen, pool[i]) {
				continue
			}
			chosen = append(chosen, pool[i])
			walk(i + 1)
			chosen = chosen[:len(chosen)-1]
		}
	}
	walk(0)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].EstimatedEV != result[j].EstimatedEV {
			return result[i].EstimatedEV > result[j].EstimatedEV
		}
		return result[i].ID < result[j].ID
	})
	if len(result) > b.cfg.MaxSuggestions {
		result = result[:b.cfg.MaxSuggestions]
	}
	return result
}

// compatible: nunca dos patas del mismo mercado; mismo partido solo si se permite.
func (b *ParlayBuilder) compatible(chosen []domain.EVOpportunity, cand domain.EVOpportunity) bool {
	for _, c := range chosen {
		if c.Game.ID != cand.Game.ID {
			continue
		}
		if !b.cfg.AllowSameGame || c.MarketKey == cand.MarketKey {
			return false
		}
	}
	return true
}

func (b *ParlayBuilder) combine(chosen []domain.EVOpportunity, now time.Time) (domain.Parlay, bool) {
	legs := make([]domain.ParlayLeg, len(chosen))
	games := make(map[string]struct{}, len(chosen))
	for i, o := range chosen {
		legs[i] = domain.LegFromOpportunity(o)
		games[o.Game.ID] = struct{}{}
	}
	factor := b.cfg.DefaultCorrelation
	if len(games) < len(chosen) {
		factor = b.cfg.SameGameFactor
	}

	p, err := b.cfg.Combiner.Combine(legs, factor, now)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientLegs) {
			slog.Debug("parlay combine failed", "legs", len(legs), "err", err)
		}
		return domain.Parlay{}, false
	}
	return p, p.EstimatedEV > 0
}
