package domain

import (
	"fmt"
	"strings"
	"time"
)

// Confidence es el nivel de confianza. Ordenado: Low < Medium < High.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "High"
	case ConfidenceMedium:
		return "Medium"
	default:
		return "Low"
	}
}

func (c Confidence) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// ParseConfidence acepta "low", "medium" o "high" sin distinguir mayúsculas.
func ParseConfidence(name string) (Confidence, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return ConfidenceLow, nil
	case "medium":
		return ConfidenceMedium, nil
	case "high":
		return ConfidenceHigh, nil
	}
	return ConfidenceLow, fmt.Errorf("domain.ParseConfidence: %q: %w", name, ErrUnsupportedKey)
}

// EVOpportunity es un outcome con EV estimado. Inmutable una vez publicado.
// EstimatedEV es recomputable con EstimatedEV(FairProbability, BestOdds.Decimal).
type EVOpportunity struct {
	ID                 string           `json:"id"`
	Sport              Sport            `json:"sport"`
	BetType            BetType          `json:"betType"`
	MarketKey          string           `json:"marketKey"`
	Outcome            string           `json:"outcome"`
	Player             string           `json:"player,omitempty"`
	Point              *float64         `json:"point,omitempty"`
	OutcomeDescription string           `json:"outcomeDescription"`
	Game               GameInfo         `json:"game"`
	Lines              []SportsbookLine `json:"lines"`
	FairProbability    float64          `json:"fairProbability"`
	FairValueMode      FairValueMode    `json:"fairValueMode"`
	EstimatedEV        float64          `json:"estimatedEV"`
	SlippageAdjustedEV float64          `json:"slippageAdjustedEV"`
	Disagreement       float64          `json:"disagreement"`
	Confidence         Confidence       `json:"confidence"`
	BestBook           Bookmaker        `json:"bestBook"`
	BestOdds           Odds             `json:"bestOdds"`
	StabilityScore     float64          `json:"stabilityScore"`
	VolatilityScore    float64          `json:"volatilityScore"`
	DetectedAt         time.Time        `json:"detectedAt"`
}

// OpportunityID construye el id estable "{evento}_{mercado}_{outcome}" con el
// jugador delante y el punto detrás cuando existen. Los espacios pasan a "_".
func OpportunityID(eventID, marketKey string, o MarketOutcome) string {
	return strings.ReplaceAll(fmt.Sprintf("%s_%s_%s", eventID, marketKey, o.Selection()), " ", "_")
}

// describeOutcome devuelve el texto para el consumidor:
// "Lakers vs Celtics", "Lakers -3.5 vs Celtics", "Over 215.5",
// "LeBron James Over 25.5".
func describeOutcome(m Market, o MarketOutcome) string {
	switch m.BetType {
	case BetTypeMoneyline:
		if opp := m.Game.Opponent(o.Name); opp != "" {
			return o.Name + " vs " + opp
		}
	case BetTypeSpread:
		if opp := m.Game.Opponent(o.Name); opp != "" && o.Point != nil {
			return fmt.Sprintf("%s %s vs %s", o.Name, FormatPoint(*o.Point, true), opp)
		}
	}
	return o.Selection()
}
