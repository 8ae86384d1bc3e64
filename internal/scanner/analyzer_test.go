package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow  = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	testGame = domain.GameInfo{
		ID:        "evt1",
		Sport:     domain.SportNBA,
		HomeTeam:  "Boston Celtics",
		AwayTeam:  "Los Angeles Lakers",
		StartTime: testNow.Add(2 * time.Hour),
	}
)

type quote struct {
	book       domain.Bookmaker
	home, away float64
}

func mustOdds(t *testing.T, d float64) domain.Odds {
	t.Helper()
	o, err := domain.NewOddsFromDecimal(d)
	require.NoError(t, err)
	return o
}

// h2hMarket construye un moneyline con una línea por libro y outcome.
func h2hMarket(t *testing.T, game domain.GameInfo, quotes ...quote) domain.Market {
	t.Helper()
	home := domain.MarketOutcome{Name: game.HomeTeam}
	away := domain.MarketOutcome{Name: game.AwayTeam}
	for _, q := range quotes {
		home.Lines = append(home.Lines, domain.SportsbookLine{
			Bookmaker: q.book, Outcome: game.HomeTeam, Odds: mustOdds(t, q.home), ObservedAt: testNow.Add(-time.Minute),
		})
		away.Lines = append(away.Lines, domain.SportsbookLine{
			Bookmaker: q.book, Outcome: game.AwayTeam, Odds: mustOdds(t, q.away), ObservedAt: testNow.Add(-time.Minute),
		})
	}
	return domain.Market{
		Game:      game,
		BetType:   domain.BetTypeMoneyline,
		MarketKey: "h2h",
		Outcomes:  []domain.MarketOutcome{home, away},
	}
}

// arbMarket: DraftKings paga 2.80 al local y FanDuel 1.667 al visitante.
func arbMarket(t *testing.T, game domain.GameInfo) domain.Market {
	return h2hMarket(t, game,
		quote{domain.DraftKings, 2.80, 1.55},
		quote{domain.FanDuel, 2.10, 1.667},
	)
}

func TestAnalyzer_Analyze_Arbitrage(t *testing.T) {
	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 0)
	res, err := a.Analyze(arbMarket(t, testGame), testNow)
	require.NoError(t, err)

	require.NotNil(t, res.Arbitrage)
	arb := res.Arbitrage
	assert.Equal(t, "h2h", arb.MarketKey)
	assert.InDelta(t, 4.30, arb.ProfitPercentage, 0.01)
	require.Len(t, arb.Bets, 2)
	assert.Equal(t, domain.DraftKings, arb.Bets[0].Bookmaker)
	assert.Equal(t, domain.FanDuel, arb.Bets[1].Bookmaker)

	require.NotEmpty(t, res.Opportunities)
	assert.Equal(t, "evt1_h2h_Boston_Celtics", res.Opportunities[0].ID)
	for _, o := range res.Opportunities {
		assert.Greater(t, o.EstimatedEV, 0.0)
	}
}

func TestAnalyzer_Analyze_NoArbitrage(t *testing.T) {
	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 0)
	m := h2hMarket(t, testGame,
		quote{domain.DraftKings, 1.667, 1.667},
		quote{domain.FanDuel, 1.667, 1.667},
	)
	res, err := a.Analyze(m, testNow)
	require.NoError(t, err)
	assert.Nil(t, res.Arbitrage)
	assert.Empty(t, res.Opportunities, "fair 0.5 at 1.667 is negative EV")
}

func TestAnalyzer_Analyze_MinArbProfit(t *testing.T) {
	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 5)
	res, err := a.Analyze(arbMarket(t, testGame), testNow)
	require.NoError(t, err)
	assert.Nil(t, res.Arbitrage)
}

func TestAnalyzer_Analyze_NoOutcomes(t *testing.T) {
	a := NewAnalyzer(domain.DefaultScoringConfig(), 0, 0)
	_, err := a.Analyze(domain.Market{Game: testGame, MarketKey: "h2h"}, testNow)
	assert.ErrorIs(t, err, domain.ErrDegenerateMarket)
}

func TestAnalyzer_Analyze_DropsDegenerateOutcome(t *testing.T) {
	m := arbMarket(t, testGame)
	m.Outcomes = append(m.Outcomes, domain.MarketOutcome{Name: "Draw"})

	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 0)
	res, err := a.Analyze(m, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Nil(t, res.Arbitrage, "an outcome without lines cannot be covered")
}

func TestAnalyzeMarketsConcurrent(t *testing.T) {
	var markets []domain.Market
	for i := 0; i < 10; i++ {
		g := testGame
		g.ID = fmt.Sprintf("evt%d", i)
		markets = append(markets, arbMarket(t, g))
	}
	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 0)

	var wantOpps int
	for _, m := range markets {
		res, err := a.Analyze(m, testNow)
		require.NoError(t, err)
		wantOpps += len(res.Opportunities)
	}

	opps, arbs, dropped := analyzeMarketsConcurrent(context.Background(), a, markets, 3, testNow)
	assert.Len(t, opps, wantOpps)
	assert.Len(t, arbs, 10)
	assert.Zero(t, dropped)
}

func TestAnalyzeMarketsConcurrent_Empty(t *testing.T) {
	a := NewAnalyzer(domain.DefaultScoringConfig(), 1000, 0)
	opps, arbs, dropped := analyzeMarketsConcurrent(context.Background(), a, nil, 0, testNow)
	assert.Empty(t, opps)
	assert.Empty(t, arbs)
	assert.Zero(t, dropped)
}

func TestRankOpportunities(t *testing.T) {
	opps := []domain.EVOpportunity{
		{ID: "c", EstimatedEV: 5, Confidence: domain.ConfidenceLow},
		{ID: "b", EstimatedEV: 5, Confidence: domain.ConfidenceMedium},
		{ID: "a", EstimatedEV: 5, Confidence: domain.ConfidenceMedium},
		{ID: "d", EstimatedEV: 12, Confidence: domain.ConfidenceLow},
	}
	rankOpportunities(opps)

	ids := make([]string, len(opps))
	for i, o := range opps {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}
