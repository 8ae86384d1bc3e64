package domain

import (
	"fmt"
	"math"
)

// Odds es el value object de un precio. Decimal es el precio tal cual lo
// cotiza el libro; American es su representación redondeada.
type Odds struct {
	American           int     `json:"american"`
	Decimal            float64 `json:"decimal"`
	ImpliedProbability float64 `json:"impliedProbability"`
	// NoVigProbability solo se rellena tras quitar el vig entre libros; cero
	// si el outcome cayó a probabilidad implícita cruda.
	NoVigProbability float64 `json:"noVigProbability,omitempty"`
}

// AmericanToDecimal convierte odds americanas a decimales.
func AmericanToDecimal(a int) (float64, error) {
	if a == 0 {
		return 0, fmt.Errorf("domain.AmericanToDecimal: %d: %w", a, ErrInvalidOdds)
	}
	if a > 0 {
		return float64(a)/100 + 1, nil
	}
	return 100/math.Abs(float64(a)) + 1, nil
}

// DecimalToAmerican convierte odds decimales a americanas, redondeando al entero.
func DecimalToAmerican(d float64) (int, error) {
	if !(d > 1) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("domain.DecimalToAmerican: %v: %w", d, ErrInvalidOdds)
	}
	if d >= 2 {
		return int(math.Round((d - 1) * 100)), nil
	}
	return int(math.Round(-100 / (d - 1))), nil
}

// ImpliedProbability devuelve 1/d. Para d no positivo devuelve 0.
func ImpliedProbability(d float64) float64 {
	if d <= 0 {
		return 0
	}
	return 1 / d
}

// RemoveVig normaliza multiplicativamente: q_i = p_i / Σp.
// La suma del resultado es 1 dentro de la tolerancia de float64.
func RemoveVig(probs []float64) ([]float64, error) {
	if len(probs) == 0 {
		return nil, fmt.Errorf("domain.RemoveVig: no probabilities: %w", ErrDegenerateMarket)
	}
	var sum float64
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("domain.RemoveVig: probability %v: %w", p, ErrDegenerateMarket)
		}
		sum += p
	}
	if sum <= 0 {
		return nil, fmt.Errorf("domain.RemoveVig: zero total probability: %w", ErrDegenerateMarket)
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		out[i] = p / sum
	}
	return out, nil
}

// NewOddsFromDecimal construye Odds a partir de un precio decimal del feed.
func NewOddsFromDecimal(d float64) (Odds, error) {
	a, err := DecimalToAmerican(d)
	if err != nil {
		return Odds{}, err
	}
	return Odds{American: a, Decimal: d, ImpliedProbability: 1 / d}, nil
}

// NewOddsFromAmerican construye Odds a partir de odds americanas.
func NewOddsFromAmerican(a int) (Odds, error) {
	if a > -100 && a < 100 {
		return Odds{}, fmt.Errorf("domain.NewOddsFromAmerican: magnitude of %d below 100: %w", a, ErrInvalidOdds)
	}
	d, err := AmericanToDecimal(a)
	if err != nil {
		return Odds{}, err
	}
	return Odds{American: a, Decimal: d, ImpliedProbability: 1 / d}, nil
}
