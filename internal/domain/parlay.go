package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskTier clasifica un parlay según el número de patas.
type RiskTier int

const (
	RiskLow RiskTier = iota
	RiskMedium
	RiskHigh
	RiskSpicy
)

func (r RiskTier) String() string {
	switch r {
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	case RiskSpicy:
		return "Spicy"
	default:
		return "Low"
	}
}

func (r RiskTier) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// RiskTierFor es monótona en el número de patas: ≤2 Low, 3 Medium, 4 High, ≥5 Spicy.
func RiskTierFor(legs int) RiskTier {
	switch {
	case legs <= 2:
		return RiskLow
	case legs == 3:
		return RiskMedium
	case legs == 4:
		return RiskHigh
	default:
		return RiskSpicy
	}
}

// ParlayLeg es una pata: un outcome con su mejor precio y su probabilidad justa.
type ParlayLeg struct {
	OpportunityID   string    `json:"opportunityId"`
	GameID          string    `json:"gameId"`
	Outcome         string    `json:"outcome"`
	Bookmaker       Bookmaker `json:"bookmaker"`
	Odds            Odds      `json:"odds"`
	FairProbability float64   `json:"fairProbability"`
}

// LegFromOpportunity construye la pata a partir de una oportunidad EV.
func LegFromOpportunity(o EVOpportunity) ParlayLeg {
	return ParlayLeg{
		OpportunityID:   o.ID,
		GameID:          o.Game.ID,
		Outcome:         o.OutcomeDescription,
		Bookmaker:       o.BestBook,
		Odds:            o.BestOdds,
		FairProbability: o.FairProbability,
	}
}

// Parlay es una combinación de patas.
type Parlay struct {
	ID                  string      `json:"id"`
	Legs                []ParlayLeg `json:"legs"`
	CombinedOdds        Odds        `json:"combinedOdds"`
	CombinedProbability float64     `json:"combinedProbability"`
	CorrelationFactor   float64     `json:"correlationFactor"`
	AdjustedProbability float64     `json:"adjustedProbability"`
	EstimatedEV         float64     `json:"estimatedEV"`
	Confidence          Confidence  `json:"confidence"`
	RiskTier            RiskTier    `json:"riskTier"`
	CorrelationWarnings []string    `json:"correlationWarnings"`
	Reasoning           string      `json:"reasoning"`
	CreatedAt           time.Time   `json:"createdAt"`
}

// ParlayConfig controla la confianza y los avisos de correlación.
type ParlayConfig struct {
	// CorrelationWarningThreshold: un factor por debajo emite aviso.
	CorrelationWarningThreshold float64
	HighEVThreshold             float64
	MedEVThreshold              float64
}

// DefaultParlayConfig devuelve la configuración por defecto.
func DefaultParlayConfig() ParlayConfig {
	return ParlayConfig{
		CorrelationWarningThreshold: 0.95,
		HighEVThreshold:             10,
		MedEVThreshold:              5,
	}
}

// CombineOdds multiplica los precios decimales de las patas (≥1 pata).
func CombineOdds(legs []ParlayLeg) (Odds, error) {
	if len(legs) == 0 {
		return Odds{}, fmt.Errorf("domain.CombineOdds: %w", ErrInsufficientLegs)
	}
	product := 1.0
	for _, l := range legs {
		if !(l.Odds.Decimal > 1) {
			return Odds{}, fmt.Errorf("domain.CombineOdds: decimal %v: %w", l.Odds.Decimal, ErrInvalidOdds)
		}
		product *= l.Odds.Decimal
	}
	return NewOddsFromDecimal(product)
}

// Combine construye un parlay de al menos dos patas. correlationFactor debe
// estar en (0, 1]; 0 significa "no suministrado" y equivale a 1.0.
func (c ParlayConfig) Combine(legs []ParlayLeg, correlationFactor float64, now time.Time) (Parlay, error) {
	if len(legs) < 2 {
		return Parlay{}, fmt.Errorf("domain.Combine: %d legs: %w", len(legs), ErrInsufficientLegs)
	}
	if correlationFactor == 0 {
		correlationFactor = 1.0
	}
	if !(correlationFactor > 0 && correlationFactor <= 1) {
		return Parlay{}, fmt.Errorf("domain.Combine: factor %v: %w", correlationFactor, ErrInvalidCorrelation)
	}

	combined, err := CombineOdds(legs)
	if err != nil {
		return Parlay{}, err
	}
	prob := 1.0
	ids := make([]string, len(legs))
	for i, l := range legs {
		prob *= l.FairProbability
		ids[i] = l.OpportunityID
	}
	adjusted := prob * correlationFactor
	ev := EstimatedEV(adjusted, combined.Decimal)

	var warnings []string
	if correlationFactor < c.CorrelationWarningThreshold {
		warnings = append(warnings, fmt.Sprintf("Some legs may be correlated (factor %.2f)", correlationFactor))
	}

	conf := ConfidenceLow
	switch {
	case ev > c.HighEVThreshold:
		conf = ConfidenceHigh
	case ev > c.MedEVThreshold:
		conf = ConfidenceMedium
	}

	return Parlay{
		ID:                  uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(ids, "|"))).String(),
		Legs:                legs,
		CombinedOdds:        combined,
		CombinedProbability: prob,
		CorrelationFactor:   correlationFactor,
		AdjustedProbability: adjusted,
		EstimatedEV:         ev,
		Confidence:          conf,
		RiskTier:            RiskTierFor(len(legs)),
		CorrelationWarnings: warnings,
		Reasoning: fmt.Sprintf("%d-leg parlay at %.2f with %.1f%% estimated edge",
			len(legs), combined.Decimal, ev),
		CreatedAt: now,
	}, nil
}
