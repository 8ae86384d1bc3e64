package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

const defaultTotalStake = 1000.0

// Analyzer puntúa un mercado normalizado: oportunidades EV positivas de cada
// outcome y, si lo hay, el arbitraje entre las mejores líneas.
type Analyzer struct {
	scoring      domain.ScoringConfig
	totalStake   float64
	minArbProfit float64
}

// NewAnalyzer crea un Analyzer con los parámetros dados.
func NewAnalyzer(scoring domain.ScoringConfig, totalStake, minArbProfit float64) *Analyzer {
	if totalStake <= 0 {
		totalStake = defaultTotalStake
	}
	return &Analyzer{scoring: scoring, totalStake: totalStake, minArbProfit: minArbProfit}
}

// Analysis es el resultado de analizar un mercado.
type Analysis struct {
	Opportunities []domain.EVOpportunity
	Arbitrage     *domain.ArbitrageOpportunity
	Dropped       int // outcomes degenerados descartados
}

// Analyze calcula las métricas de todos los outcomes del mercado. Un outcome
// degenerado se descarta sin afectar al resto.
func (a *Analyzer) Analyze(m domain.Market, now time.Time) (Analysis, error) {
	if len(m.Outcomes) == 0 {
		return Analysis{}, fmt.Errorf("analyzer: market %s/%s without outcomes: %w", m.Game.ID, m.MarketKey, domain.ErrDegenerateMarket)
	}

	var res Analysis
	for i := range m.Outcomes {
		opp, err := a.scoring.ScoreOutcome(m, i, now)
		if err != nil {
			slog.Debug("outcome dropped",
				"event", m.Game.ID, "market", m.MarketKey, "outcome", m.Outcomes[i].Selection(), "err", err)
			res.Dropped++
			continue
		}
		// solo EV positivo
		if opp.EstimatedEV <= 0 {
			continue
		}
		res.Opportunities = append(res.Opportunities, opp)
	}

	if len(m.Outcomes) < 2 {
		return res, nil
	}
	legs, err := m.BestLines()
	if err != nil {
		return res, nil
	}
	arb, ok, err := domain.DetectArbitrage(legs, a.totalStake)
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientLegs) {
			slog.Debug("arbitrage check failed", "event", m.Game.ID, "market", m.MarketKey, "err", err)
		}
		return res, nil
	}
	if ok && arb.ProfitPercentage >= a.minArbProfit {
		opp := domain.NewArbitrageOpportunity(m, arb, legs, now)
		res.Arbitrage = &opp
	}
	return res, nil
}
