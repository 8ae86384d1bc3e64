package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

var testGame = GameInfo{
	ID:        "evt1",
	Sport:     SportNBA,
	HomeTeam:  "Boston Celtics",
	AwayTeam:  "Los Angeles Lakers",
	StartTime: testNow.Add(2 * time.Hour),
}

func mustDecimal(t *testing.T, d float64) Odds {
	t.Helper()
	o, err := NewOddsFromDecimal(d)
	require.NoError(t, err)
	return o
}

func mustAmerican(t *testing.T, a int) Odds {
	t.Helper()
	o, err := NewOddsFromAmerican(a)
	require.NoError(t, err)
	return o
}

func makeLine(t *testing.T, book Bookmaker, outcome string, decimal float64, age time.Duration) SportsbookLine {
	t.Helper()
	return SportsbookLine{
		Bookmaker:  book,
		Outcome:    outcome,
		Odds:       mustDecimal(t, decimal),
		ObservedAt: testNow.Add(-age),
	}
}

// twoWayMarket arma un moneyline en el que cada libro cotiza ambos lados.
func twoWayMarket(t *testing.T, quotes map[Bookmaker][2]float64) Market {
	t.Helper()
	home := MarketOutcome{Name: testGame.HomeTeam}
	away := MarketOutcome{Name: testGame.AwayTeam}
	for _, b := range Bookmakers() {
		q, ok := quotes[b]
		if !ok {
			continue
		}
		home.Lines = append(home.Lines, makeLine(t, b, home.Name, q[0], 0))
		away.Lines = append(away.Lines, makeLine(t, b, away.Name, q[1], 0))
	}
	return Market{
		Game:      testGame,
		BetType:   BetTypeMoneyline,
		MarketKey: "h2h",
		Outcomes:  []MarketOutcome{home, away},
	}
}
