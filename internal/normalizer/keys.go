package normalizer

import (
	"fmt"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Tablas de claves del proveedor (The Odds API v4) → enums canónicos.
// Cualquier clave fuera de estas tablas es ErrUnsupportedKey.

var sportByKey = map[string]domain.Sport{
	"basketball_nba":       domain.SportNBA,
	"icehockey_nhl":        domain.SportNHL,
	"americanfootball_nfl": domain.SportNFL,
	"baseball_mlb":         domain.SportMLB,
}

var betTypeByMarketKey = map[string]domain.BetType{
	"h2h":                  domain.BetTypeMoneyline,
	"spreads":              domain.BetTypeSpread,
	"totals":               domain.BetTypeTotals,
	"player_points":        domain.BetTypeProps,
	"player_rebounds":      domain.BetTypeProps,
	"player_assists":       domain.BetTypeProps,
	"player_threes":        domain.BetTypeProps,
	"player_goals":         domain.BetTypeProps,
	"player_shots_on_goal": domain.BetTypeProps,
}

var bookmakerByKey = map[string]domain.Bookmaker{
	"bet365":         domain.Bet365,
	"betmgm":         domain.BetMGM,
	"draftkings":     domain.DraftKings,
	"fanduel":        domain.FanDuel,
	"pointsbetus":    domain.PointsBet,
	"betway":         domain.Betway,
	"williamhill_us": domain.Caesars,
	"unibet_us":      domain.Unibet,
	"888sport":       domain.Sport888,
	"betrivers":      domain.BetRivers,
	"thescore_bet":   domain.TheScoreBet,
	"betano":         domain.Betano,
	"si_sportsbook":  domain.SportsInteraction,
}

// LookupSport traduce la clave de deporte del proveedor.
func LookupSport(key string) (domain.Sport, error) {
	if s, ok := sportByKey[key]; ok {
		return s, nil
	}
	return domain.SportUnknown, fmt.Errorf("normalizer.LookupSport: %q: %w", key, domain.ErrUnsupportedKey)
}

// LookupBetType traduce la clave de mercado del proveedor.
func LookupBetType(key string) (domain.BetType, error) {
	if b, ok := betTypeByMarketKey[key]; ok {
		return b, nil
	}
	return domain.BetTypeUnknown, fmt.Errorf("normalizer.LookupBetType: %q: %w", key, domain.ErrUnsupportedKey)
}

// LookupBookmaker traduce la clave de bookmaker del proveedor.
func LookupBookmaker(key string) (domain.Bookmaker, error) {
	if b, ok := bookmakerByKey[key]; ok {
		return b, nil
	}
	return domain.BookmakerUnknown, fmt.Errorf("normalizer.LookupBookmaker: %q: %w", key, domain.ErrUnsupportedKey)
}

// SportKey devuelve la clave del proveedor para un deporte canónico.
func SportKey(s domain.Sport) (string, error) {
	switch s {
	case domain.SportNBA:
		return "basketball_nba", nil
	case domain.SportNHL:
		return "icehockey_nhl", nil
	case domain.SportNFL:
		return "americanfootball_nfl", nil
	case domain.SportMLB:
		return "baseball_mlb", nil
	}
	return "", fmt.Errorf("normalizer.SportKey: %s: %w", s, domain.ErrUnsupportedKey)
}

// BookmakerKey devuelve la clave del proveedor para un libro canónico.
func BookmakerKey(b domain.Bookmaker) (string, error) {
	for k, v := range bookmakerByKey {
		if v == b {
			return k, nil
		}
	}
	return "", fmt.Errorf("normalizer.BookmakerKey: %s: %w", b, domain.ErrUnsupportedKey)
}

// MarketKeys devuelve los mercados de partido que se piden al endpoint de odds.
func MarketKeys() []string {
	return []string{"h2h", "spreads", "totals"}
}
