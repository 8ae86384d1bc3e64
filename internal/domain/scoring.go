package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ScoringConfig contiene los umbrales del scorer. Son parámetros, no lógica:
// se inyectan desde config y se validan al arrancar.
type ScoringConfig struct {
	HighEVThreshold          float64       // EV% mínimo para High
	MedEVThreshold           float64       // EV% mínimo para Medium
	HighBookMin              int           // libros mínimos para High
	MedBookMin               int           // libros mínimos para Medium
	LowDisagreementThreshold float64       // desacuerdo máximo (exclusivo) para High
	SlippageBuffer           float64       // recorte de EV en (0, 1]
	StabilityCeiling         time.Duration // edad media que lleva la estabilidad a 0
	VolatilityReference      float64       // desacuerdo que lleva la volatilidad a 100
}

// DefaultScoringConfig devuelve los umbrales de producción.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		HighEVThreshold:          10,
		MedEVThreshold:           5,
		HighBookMin:              5,
		MedBookMin:               3,
		LowDisagreementThreshold: 0.05,
		SlippageBuffer:           0.85,
		StabilityCeiling:         60 * time.Minute,
		VolatilityReference:      0.20,
	}
}

// Validate comprueba que los umbrales sean coherentes.
func (c ScoringConfig) Validate() error {
	var errs []error
	if !(c.SlippageBuffer > 0 && c.SlippageBuffer <= 1) {
		errs = append(errs, fmt.Errorf("slippage buffer %v outside (0, 1]", c.SlippageBuffer))
	}
	if c.MedEVThreshold > c.HighEVThreshold {
		errs = append(errs, fmt.Errorf("medium EV threshold %v above high %v", c.MedEVThreshold, c.HighEVThreshold))
	}
	if c.MedBookMin < 1 || c.MedBookMin > c.HighBookMin {
		errs = append(errs, fmt.Errorf("book minimums medium=%d high=%d", c.MedBookMin, c.HighBookMin))
	}
	if c.LowDisagreementThreshold <= 0 {
		errs = append(errs, fmt.Errorf("low disagreement threshold %v must be positive", c.LowDisagreementThreshold))
	}
	if c.StabilityCeiling <= 0 {
		errs = append(errs, fmt.Errorf("stability ceiling %v must be positive", c.StabilityCeiling))
	}
	if c.VolatilityReference <= 0 {
		errs = append(errs, fmt.Errorf("volatility reference %v must be positive", c.VolatilityReference))
	}
	return errors.Join(errs...)
}

// BestLine devuelve la línea con mayor precio decimal. Empate: gana la
// observada antes; si persiste, el bookmaker con menor orden de enum.
func BestLine(lines []SportsbookLine) (SportsbookLine, error) {
	if len(lines) == 0 {
		return SportsbookLine{}, fmt.Errorf("domain.BestLine: no lines: %w", ErrDegenerateMarket)
	}
	best := lines[0]
	for _, l := range lines[1:] {
		switch {
		case l.Odds.Decimal > best.Odds.Decimal:
			best = l
		case l.Odds.Decimal < best.Odds.Decimal:
		case l.ObservedAt.Before(best.ObservedAt):
			best = l
		case l.ObservedAt.Equal(best.ObservedAt) && l.Bookmaker < best.Bookmaker:
			best = l
		}
	}
	return best, nil
}

// EstimatedEV devuelve el EV en porcentaje: (p × d − 1) × 100.
func EstimatedEV(fairProbability, decimal float64) float64 {
	return (fairProbability*decimal - 1) * 100
}

// SlippageAdjustedEV aplica el recorte por slippage.
func (c ScoringConfig) SlippageAdjustedEV(ev float64) float64 {
	return ev * c.SlippageBuffer
}

// LineDisagreement es la desviación típica poblacional de las implícitas.
// Con menos de dos líneas es 0.
func LineDisagreement(lines []SportsbookLine) float64 {
	if len(lines) < 2 {
		return 0
	}
	var mean float64
	for _, l := range lines {
		mean += l.Odds.ImpliedProbability
	}
	mean /= float64(len(lines))

	var variance float64
	for _, l := range lines {
		d := l.Odds.ImpliedProbability - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(lines)))
}

// evEpsilon absorbe el error de redondeo al comparar EV con un umbral.
const evEpsilon = 1e-9

// Confidence clasifica en orden: High, Medium, Low. La primera que encaja gana.
func (c ScoringConfig) Confidence(ev float64, bookCount int, disagreement float64) Confidence {
	if ev >= c.HighEVThreshold-evEpsilon && bookCount >= c.HighBookMin && disagreement < c.LowDisagreementThreshold {
		return ConfidenceHigh
	}
	if ev >= c.MedEVThreshold-evEpsilon && bookCount >= c.MedBookMin {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// StabilityScore (0–100) baja linealmente con la edad media de las líneas.
// Edad 0 → 100; edad >= StabilityCeiling → 0. Timestamps futuros cuentan como 0.
func (c ScoringConfig) StabilityScore(lines []SportsbookLine, now time.Time) float64 {
	if len(lines) == 0 || c.StabilityCeiling <= 0 {
		return 0
	}
	var total time.Duration
	for _, l := range lines {
		if age := now.Sub(l.ObservedAt); age > 0 {
			total += age
		}
	}
	avg := total.Minutes() / float64(len(lines))
	return clamp(100*(1-avg/c.StabilityCeiling.Minutes()), 0, 100)
}

// VolatilityScore (0–100) crece linealmente con el desacuerdo;
// VolatilityReference → 100.
func (c ScoringConfig) VolatilityScore(disagreement float64) float64 {
	if c.VolatilityReference <= 0 {
		return 0
	}
	return clamp(disagreement/c.VolatilityReference*100, 0, 100)
}

// ScoreOutcome construye la oportunidad del outcome idx de m. No descarta EV
// negativo: eso lo decide el llamador.
func (c ScoringConfig) ScoreOutcome(m Market, idx int, now time.Time) (EVOpportunity, error) {
	fv, err := EstimateFairValue(m, idx)
	if err != nil {
		return EVOpportunity{}, err
	}
	best, err := BestLine(fv.Lines)
	if err != nil {
		return EVOpportunity{}, err
	}

	outcome := m.Outcomes[idx]
	ev := EstimatedEV(fv.Probability, best.Odds.Decimal)
	disagreement := LineDisagreement(fv.Lines)

	return EVOpportunity{
		ID:                 OpportunityID(m.Game.ID, m.MarketKey, outcome),
		Sport:              m.Game.Sport,
		BetType:            m.BetType,
		MarketKey:          m.MarketKey,
		Outcome:            outcome.Name,
		Player:             outcome.Description,
		Point:              outcome.Point,
		OutcomeDescription: describeOutcome(m, outcome),
		Game:               m.Game,
		Lines:              fv.Lines,
		FairProbability:    fv.Probability,
		FairValueMode:      fv.Mode,
		EstimatedEV:        ev,
		SlippageAdjustedEV: c.SlippageAdjustedEV(ev),
		Disagreement:       disagreement,
		Confidence:         c.Confidence(ev, countBooks(fv.Lines), disagreement),
		BestBook:           best.Bookmaker,
		BestOdds:           best.Odds,
		StabilityScore:     c.StabilityScore(fv.Lines, now),
		VolatilityScore:    c.VolatilityScore(disagreement),
		DetectedAt:         now,
	}, nil
}

func countBooks(lines []SportsbookLine) int {
	seen := make(map[Bookmaker]struct{}, len(lines))
	for _, l := range lines {
		seen[l.Bookmaker] = struct{}{}
	}
	return len(seen)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
