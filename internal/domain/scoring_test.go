package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- BestLine ---

func TestBestLine_HighestDecimal(t *testing.T) {
	lines := []SportsbookLine{
		makeLine(t, DraftKings, "Over", 1.91, 0),
		makeLine(t, FanDuel, "Over", 1.95, 0),
		makeLine(t, BetMGM, "Over", 1.87, 0),
	}
	best, err := BestLine(lines)
	require.NoError(t, err)
	assert.Equal(t, FanDuel, best.Bookmaker)
}

func TestBestLine_TieBreakEarliestObserved(t *testing.T) {
	lines := []SportsbookLine{
		makeLine(t, DraftKings, "Over", 1.95, 1*time.Minute),
		makeLine(t, FanDuel, "Over", 1.95, 5*time.Minute),
		makeLine(t, BetMGM, "Over", 1.95, 2*time.Minute),
	}
	best, err := BestLine(lines)
	require.NoError(t, err)
	assert.Equal(t, FanDuel, best.Bookmaker)
}

func TestBestLine_TieBreakBookmakerOrder(t *testing.T) {
	lines := []SportsbookLine{
		makeLine(t, FanDuel, "Over", 1.95, time.Minute),
		makeLine(t, Bet365, "Over", 1.95, time.Minute),
	}
	best, err := BestLine(lines)
	require.NoError(t, err)
	assert.Equal(t, Bet365, best.Bookmaker)
}

func TestBestLine_Empty(t *testing.T) {
	_, err := BestLine(nil)
	assert.ErrorIs(t, err, ErrDegenerateMarket)
}

// --- EV ---

func TestEstimatedEV_SignConsistency(t *testing.T) {
	for _, p := range []float64{0.05, 0.3, 0.45, 0.5, 0.55, 0.7, 0.95} {
		for _, d := range []float64{1.05, 1.5, 1.91, 2.0, 2.2, 3.0, 12.0} {
			ev := EstimatedEV(p, d)
			switch {
			case p*d > 1:
				assert.Greater(t, ev, 0.0, "p=%v d=%v", p, d)
			case p*d < 1:
				assert.Less(t, ev, 0.0, "p=%v d=%v", p, d)
			}
		}
	}
}

func TestSlippageAdjustedEV(t *testing.T) {
	cfg := DefaultScoringConfig()
	assert.InDelta(t, 8.5, cfg.SlippageAdjustedEV(10), 1e-12)
}

// --- Disagreement ---

func TestLineDisagreement(t *testing.T) {
	lines := []SportsbookLine{
		makeLine(t, DraftKings, "Over", 2.0, 0),
		makeLine(t, FanDuel, "Over", 4.0, 0),
	}
	// implícitas 0.5 y 0.25 → media 0.375, desviación poblacional 0.125
	assert.InDelta(t, 0.125, LineDisagreement(lines), 1e-12)
}

func TestLineDisagreement_SingleLine(t *testing.T) {
	assert.Zero(t, LineDisagreement([]SportsbookLine{makeLine(t, DraftKings, "Over", 2.0, 0)}))
	assert.Zero(t, LineDisagreement(nil))
}

// --- Confidence ---

func TestConfidence_Tiers(t *testing.T) {
	cfg := DefaultScoringConfig()
	assert.Equal(t, ConfidenceHigh, cfg.Confidence(10, 5, 0.01))
	assert.Equal(t, ConfidenceMedium, cfg.Confidence(10, 5, 0.05), "disagreement at threshold is not low")
	assert.Equal(t, ConfidenceMedium, cfg.Confidence(10, 4, 0.01))
	assert.Equal(t, ConfidenceMedium, cfg.Confidence(5, 3, 0.3))
	assert.Equal(t, ConfidenceLow, cfg.Confidence(4.99, 10, 0.0))
	assert.Equal(t, ConfidenceLow, cfg.Confidence(20, 2, 0.0))
}

func TestConfidence_Monotonic(t *testing.T) {
	cfg := DefaultScoringConfig()
	evs := []float64{-5, 0, 2, 4.9, 5, 7, 9.99, 10, 15, 40}
	books := []int{1, 2, 3, 4, 5, 6, 10}
	for _, dis := range []float64{0, 0.02, 0.049, 0.05, 0.2} {
		for i := range evs {
			for j := range books {
				c := cfg.Confidence(evs[i], books[j], dis)
				if i+1 < len(evs) {
					assert.GreaterOrEqual(t, cfg.Confidence(evs[i+1], books[j], dis), c)
				}
				if j+1 < len(books) {
					assert.GreaterOrEqual(t, cfg.Confidence(evs[i], books[j+1], dis), c)
				}
			}
		}
	}
}

func TestConfidence_CustomThresholds(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.HighEVThreshold = 3
	cfg.HighBookMin = 2
	assert.Equal(t, ConfidenceHigh, cfg.Confidence(3.5, 2, 0.01))
}

// --- Stability / Volatility ---

func TestStabilityScore(t *testing.T) {
	cfg := DefaultScoringConfig()
	fresh := []SportsbookLine{makeLine(t, DraftKings, "Over", 2, 0)}
	assert.InDelta(t, 100, cfg.StabilityScore(fresh, testNow), 1e-9)

	half := []SportsbookLine{
		makeLine(t, DraftKings, "Over", 2, 20*time.Minute),
		makeLine(t, FanDuel, "Over", 2, 40*time.Minute),
	}
	assert.InDelta(t, 50, cfg.StabilityScore(half, testNow), 1e-9)

	old := []SportsbookLine{makeLine(t, DraftKings, "Over", 2, 90*time.Minute)}
	assert.Zero(t, cfg.StabilityScore(old, testNow))

	future := []SportsbookLine{makeLine(t, DraftKings, "Over", 2, -10*time.Minute)}
	assert.InDelta(t, 100, cfg.StabilityScore(future, testNow), 1e-9)
}

func TestVolatilityScore(t *testing.T) {
	cfg := DefaultScoringConfig()
	assert.Zero(t, cfg.VolatilityScore(0))
	assert.InDelta(t, 50, cfg.VolatilityScore(0.10), 1e-9)
	assert.InDelta(t, 100, cfg.VolatilityScore(0.20), 1e-9)
	assert.InDelta(t, 100, cfg.VolatilityScore(0.75), 1e-9)
}

// --- ScoreOutcome ---

// fiveBookMarket: cada libro, sin vig, da 0.55 al local; el mejor precio es 2.00.
func fiveBookMarket(t *testing.T) Market {
	t.Helper()
	awayFor := func(home float64) float64 {
		ph := 1 / home
		return 1 / (ph * 0.45 / 0.55)
	}
	quotes := map[Bookmaker][2]float64{}
	for i, b := range []Bookmaker{DraftKings, FanDuel, BetMGM, Caesars, BetRivers} {
		home := 1.75
		if i == 0 {
			home = 2.00
		}
		quotes[b] = [2]float64{home, awayFor(home)}
	}
	return twoWayMarket(t, quotes)
}

func TestScoreOutcome_PositiveEVScenario(t *testing.T) {
	cfg := DefaultScoringConfig()
	opp, err := cfg.ScoreOutcome(fiveBookMarket(t), 0, testNow)
	require.NoError(t, err)

	assert.Equal(t, FairValueDeVig, opp.FairValueMode)
	assert.InDelta(t, 0.55, opp.FairProbability, 1e-9)
	assert.Equal(t, DraftKings, opp.BestBook)
	assert.Equal(t, 100, opp.BestOdds.American)
	assert.InDelta(t, 10.0, opp.EstimatedEV, 1e-6)
	assert.InDelta(t, 8.5, opp.SlippageAdjustedEV, 1e-6)
	assert.Less(t, opp.Disagreement, 0.05)
	assert.Equal(t, ConfidenceHigh, opp.Confidence)
	assert.Len(t, opp.Lines, 5)
	assert.InDelta(t, 100, opp.StabilityScore, 1e-9)
	assert.Equal(t, "evt1_h2h_Boston_Celtics", opp.ID)
	assert.Equal(t, "Boston Celtics vs Los Angeles Lakers", opp.OutcomeDescription)

	// EV recomputable desde fairProbability y el precio del mejor libro
	assert.InDelta(t, EstimatedEV(opp.FairProbability, opp.BestOdds.Decimal), opp.EstimatedEV, 1e-12)
}

func TestScoreOutcome_AwaySide(t *testing.T) {
	cfg := DefaultScoringConfig()
	opp, err := cfg.ScoreOutcome(fiveBookMarket(t), 1, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, opp.FairProbability, 1e-9)
	// mejor away = 2.4444; los otros libros pagan 2.1389
	assert.Equal(t, DraftKings, opp.BestBook)
	assert.False(t, math.IsNaN(opp.EstimatedEV))
}

func TestScoreOutcome_SpreadDescription(t *testing.T) {
	p, q := -3.5, 3.5
	m := Market{
		Game:      testGame,
		BetType:   BetTypeSpread,
		MarketKey: "spreads",
		Outcomes: []MarketOutcome{
			{Name: testGame.HomeTeam, Point: &p, Lines: []SportsbookLine{makeLine(t, FanDuel, testGame.HomeTeam, 1.91, 0)}},
			{Name: testGame.AwayTeam, Point: &q, Lines: []SportsbookLine{makeLine(t, FanDuel, testGame.AwayTeam, 1.91, 0)}},
		},
	}
	cfg := DefaultScoringConfig()
	opp, err := cfg.ScoreOutcome(m, 1, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Los Angeles Lakers +3.5 vs Boston Celtics", opp.OutcomeDescription)
	assert.Equal(t, "evt1_spreads_Los_Angeles_Lakers_3.5", opp.ID)
}

func TestScoringConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultScoringConfig().Validate())

	bad := DefaultScoringConfig()
	bad.SlippageBuffer = 1.2
	bad.MedBookMin = 7
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slippage buffer")
	assert.Contains(t, err.Error(), "book minimums")
}
