package scanner

import (
	"slices"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Filter es el filtro de lectura del consumidor. El valor cero no filtra nada.
type Filter struct {
	// MinEV descarta oportunidades con EstimatedEV por debajo.
	MinEV float64
	// BetType restringe el tipo de mercado; BetTypeUnknown significa cualquiera.
	BetType domain.BetType
	// Confidence, si no está vacío, restringe a esos niveles.
	Confidence []domain.Confidence
	// Bookmakers, si no está vacío, exige que el mejor libro esté en la lista.
	Bookmakers []domain.Bookmaker
}

// Apply devuelve las oportunidades que pasan el filtro, conservando el orden.
func (f Filter) Apply(opps []domain.EVOpportunity) []domain.EVOpportunity {
	result := make([]domain.EVOpportunity, 0, len(opps))
	for _, opp := range opps {
		if f.passes(opp) {
			result = append(result, opp)
		}
	}
	return result
}

// passes devuelve true si la oportunidad supera todos los criterios.
func (f Filter) passes(opp domain.EVOpportunity) bool {
	if opp.EstimatedEV < f.MinEV {
		return false
	}
	if f.BetType != domain.BetTypeUnknown && opp.BetType != f.BetType {
		return false
	}
	if len(f.Confidence) > 0 && !slices.Contains(f.Confidence, opp.Confidence) {
		return false
	}
	if len(f.Bookmakers) > 0 && !slices.Contains(f.Bookmakers, opp.BestBook) {
		return false
	}
	return true
}

// filterArbitrage devuelve los arbitrajes con beneficio >= minProfit.
func filterArbitrage(arbs []domain.ArbitrageOpportunity, minProfit float64) []domain.ArbitrageOpportunity {
	result := make([]domain.ArbitrageOpportunity, 0, len(arbs))
	for _, a := range arbs {
		if a.ProfitPercentage >= minProfit {
			result = append(result, a)
		}
	}
	return result
}
