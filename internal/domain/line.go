package domain

import (
	"fmt"
	"strings"
	"time"
)

// Sport es el deporte canónico. El cero es SportUnknown.
type Sport int

const (
	SportUnknown Sport = iota
	SportNBA
	SportNHL
	SportNFL
	SportMLB
)

var sportNames = [...]string{"UNKNOWN", "NBA", "NHL", "NFL", "MLB"}

func (s Sport) String() string {
	if s < 0 || int(s) >= len(sportNames) {
		return sportNames[0]
	}
	return sportNames[s]
}

func (s Sport) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseSport acepta el nombre canónico sin distinguir mayúsculas ("nba", "NBA").
func ParseSport(name string) (Sport, error) {
	for i := 1; i < len(sportNames); i++ {
		if strings.EqualFold(sportNames[i], name) {
			return Sport(i), nil
		}
	}
	return SportUnknown, fmt.Errorf("domain.ParseSport: %q: %w", name, ErrUnsupportedKey)
}

// Sports devuelve todos los deportes soportados.
func Sports() []Sport {
	return []Sport{SportNBA, SportNHL, SportNFL, SportMLB}
}

// BetType es el tipo de mercado. En un filtro, BetTypeUnknown significa "cualquiera".
type BetType int

const (
	BetTypeUnknown BetType = iota
	BetTypeMoneyline
	BetTypeSpread
	BetTypeTotals
	BetTypeProps
)

var betTypeNames = [...]string{"unknown", "moneyline", "spread", "totals", "props"}

func (b BetType) String() string {
	if b < 0 || int(b) >= len(betTypeNames) {
		return betTypeNames[0]
	}
	return betTypeNames[b]
}

func (b BetType) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBetType acepta "moneyline", "spread", "totals" o "props".
func ParseBetType(name string) (BetType, error) {
	for i := 1; i < len(betTypeNames); i++ {
		if strings.EqualFold(betTypeNames[i], name) {
			return BetType(i), nil
		}
	}
	return BetTypeUnknown, fmt.Errorf("domain.ParseBetType: %q: %w", name, ErrUnsupportedKey)
}

// Bookmaker es la identidad canónica de un libro.
type Bookmaker int

const (
	BookmakerUnknown Bookmaker = iota
	Bet365
	BetMGM
	DraftKings
	FanDuel
	PointsBet
	Betway
	Caesars
	Unibet
	Sport888
	BetRivers
	TheScoreBet
	Betano
	SportsInteraction
)

var bookmakerNames = [...]string{
	"unknown",
	"bet365",
	"BetMGM",
	"DraftKings",
	"FanDuel",
	"PointsBet",
	"Betway",
	"Caesars",
	"Unibet",
	"888sport",
	"BetRivers",
	"theScore Bet",
	"Betano",
	"Sports Interaction",
}

func (b Bookmaker) String() string {
	if b < 0 || int(b) >= len(bookmakerNames) {
		return bookmakerNames[0]
	}
	return bookmakerNames[b]
}

func (b Bookmaker) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// ParseBookmaker resuelve un nombre canónico ("DraftKings", "theScore Bet"),
// sin distinguir mayúsculas.
func ParseBookmaker(name string) (Bookmaker, error) {
	name = strings.TrimSpace(name)
	for i := 1; i < len(bookmakerNames); i++ {
		if strings.EqualFold(bookmakerNames[i], name) {
			return Bookmaker(i), nil
		}
	}
	return BookmakerUnknown, fmt.Errorf("domain.ParseBookmaker: %q: %w", name, ErrUnsupportedKey)
}

// Bookmakers devuelve todos los libros conocidos, en orden de enum.
func Bookmakers() []Bookmaker {
	out := make([]Bookmaker, 0, len(bookmakerNames)-1)
	for i := 1; i < len(bookmakerNames); i++ {
		out = append(out, Bookmaker(i))
	}
	return out
}

// GameInfo identifica un evento. Su identidad es el id del proveedor.
type GameInfo struct {
	ID        string    `json:"id"`
	Sport     Sport     `json:"sport"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	StartTime time.Time `json:"startTime"`
}

// Opponent devuelve el rival del equipo dado, o "" si no juega este partido.
func (g GameInfo) Opponent(team string) string {
	switch team {
	case g.HomeTeam:
		return g.AwayTeam
	case g.AwayTeam:
		return g.HomeTeam
	}
	return ""
}

// SportsbookLine es la cotización de un libro para un outcome en un instante.
// Se crea en cada pasada de normalización y nunca se modifica.
type SportsbookLine struct {
	Bookmaker Bookmaker `json:"bookmaker"`
	Outcome   string    `json:"outcome"`
	// Description es el jugador en mercados de props.
	Description string    `json:"description,omitempty"`
	Odds        Odds      `json:"odds"`
	Point       *float64  `json:"point,omitempty"`
	ObservedAt  time.Time `json:"observedAt"`
}

// PointValue devuelve el punto o 0 si la línea no tiene.
func (l SportsbookLine) PointValue() float64 {
	if l.Point == nil {
		return 0
	}
	return *l.Point
}
