package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeLeg(t *testing.T, id string, decimal, fair float64) ParlayLeg {
	t.Helper()
	return ParlayLeg{OpportunityID: id, GameID: "g-" + id, Outcome: id, Bookmaker: FanDuel, Odds: mustDecimal(t, decimal), FairProbability: fair}
}

func TestCombine_Scenario(t *testing.T) {
	cfg := DefaultParlayConfig()
	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60)}

	p, err := cfg.Combine(legs, 0.95, testNow)
	require.NoError(t, err)

	assert.InDelta(t, 3.4953, p.CombinedOdds.Decimal, 1e-9)
	assert.InDelta(t, 0.33, p.CombinedProbability, 1e-12)
	assert.InDelta(t, 0.3135, p.AdjustedProbability, 1e-12)
	assert.InDelta(t, 9.6, p.EstimatedEV, 0.05)
	assert.Equal(t, RiskLow, p.RiskTier)
	assert.Equal(t, ConfidenceMedium, p.Confidence)
	assert.Empty(t, p.CorrelationWarnings, "0.95 is not below the warning threshold")
}

func TestCombine_IndependenceMatchesRawProduct(t *testing.T) {
	cfg := DefaultParlayConfig()
	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60), makeLeg(t, "c", 2.40, 0.45)}

	p, err := cfg.Combine(legs, 1.0, testNow)
	require.NoError(t, err)
	raw := EstimatedEV(0.55*0.60*0.45, 1.91*1.83*2.40)
	assert.InDelta(t, raw, p.EstimatedEV, 1e-9)

	defaulted, err := cfg.Combine(legs, 0, testNow)
	require.NoError(t, err)
	assert.InDelta(t, p.EstimatedEV, defaulted.EstimatedEV, 1e-12)
	assert.Equal(t, 1.0, defaulted.CorrelationFactor)
}

func TestCombineOdds_Multiplicative(t *testing.T) {
	decimals := []float64{1.91, 1.83, 2.40, 3.10, 1.50, 1.25}
	for n := 1; n <= len(decimals); n++ {
		legs := make([]ParlayLeg, n)
		want := 1.0
		for i := 0; i < n; i++ {
			legs[i] = makeLeg(t, string(rune('a'+i)), decimals[i], 0.5)
			want *= decimals[i]
		}
		got, err := CombineOdds(legs)
		require.NoError(t, err)
		assert.InDelta(t, want, got.Decimal, 1e-9, "legs %d", n)
	}
}

func TestCombine_CorrelationWarning(t *testing.T) {
	cfg := DefaultParlayConfig()
	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60)}
	p, err := cfg.Combine(legs, 0.80, testNow)
	require.NoError(t, err)
	require.Len(t, p.CorrelationWarnings, 1)
	assert.Contains(t, p.CorrelationWarnings[0], "correlated")
}

func TestCombine_Errors(t *testing.T) {
	cfg := DefaultParlayConfig()
	_, err := cfg.Combine([]ParlayLeg{makeLeg(t, "a", 1.91, 0.55)}, 1, testNow)
	assert.ErrorIs(t, err, ErrInsufficientLegs)

	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60)}
	_, err = cfg.Combine(legs, 1.2, testNow)
	assert.ErrorIs(t, err, ErrInvalidCorrelation)
	_, err = cfg.Combine(legs, -0.5, testNow)
	assert.ErrorIs(t, err, ErrInvalidCorrelation)
	_, err = cfg.Combine(legs, math.NaN(), testNow)
	assert.ErrorIs(t, err, ErrInvalidCorrelation)

	_, err = CombineOdds(nil)
	assert.ErrorIs(t, err, ErrInsufficientLegs)
}

func TestCombine_ConfidenceThresholdsAreStrict(t *testing.T) {
	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60)}
	base, err := DefaultParlayConfig().Combine(legs, 1, testNow)
	require.NoError(t, err)
	require.Equal(t, ConfidenceHigh, base.Confidence)

	// un EV igual al umbral no lo supera
	cfg := DefaultParlayConfig()
	cfg.HighEVThreshold = base.EstimatedEV
	p, err := cfg.Combine(legs, 1, testNow)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceMedium, p.Confidence)

	cfg.MedEVThreshold = base.EstimatedEV
	p, err = cfg.Combine(legs, 1, testNow)
	require.NoError(t, err)
	assert.Equal(t, ConfidenceLow, p.Confidence)
}

func TestCombine_DeterministicID(t *testing.T) {
	cfg := DefaultParlayConfig()
	legs := []ParlayLeg{makeLeg(t, "a", 1.91, 0.55), makeLeg(t, "b", 1.83, 0.60)}
	p1, err := cfg.Combine(legs, 1, testNow)
	require.NoError(t, err)
	p2, err := cfg.Combine(legs, 1, testNow)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
}

func TestRiskTierFor_Monotonic(t *testing.T) {
	assert.Equal(t, RiskLow, RiskTierFor(2))
	assert.Equal(t, RiskMedium, RiskTierFor(3))
	assert.Equal(t, RiskHigh, RiskTierFor(4))
	assert.Equal(t, RiskSpicy, RiskTierFor(5))
	assert.Equal(t, RiskSpicy, RiskTierFor(9))
	for n := 2; n < 10; n++ {
		assert.GreaterOrEqual(t, RiskTierFor(n+1), RiskTierFor(n))
	}
}
