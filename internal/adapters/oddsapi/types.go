package oddsapi

import "time"

// DTOs raw de The Odds API v4. Solo se usan dentro de este paquete.
// La conversión a domain.FeedEvent se hace en mapping.go.

// eventDTO es un elemento de GET /v4/sports/{sport}/odds.
type eventDTO struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime time.Time      `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []bookmakerDTO `json:"bookmakers"`
}

type bookmakerDTO struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []marketDTO `json:"markets"`
}

// marketDTO: last_update por mercado no siempre viene.
type marketDTO struct {
	Key        string       `json:"key"`
	LastUpdate time.Time    `json:"last_update"`
	Outcomes   []outcomeDTO `json:"outcomes"`
}

// outcomeDTO: price en formato decimal (se pide oddsFormat=decimal).
// description trae el jugador en mercados de props.
type outcomeDTO struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point"`
}
