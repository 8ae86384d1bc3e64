package domain

import "time"

// FeedEvent es un evento tal como lo entrega el proveedor, antes de normalizar.
// Las claves (SportKey, Bookmaker.Key, Market.Key) son las del proveedor.
type FeedEvent struct {
	ID           string
	SportKey     string
	HomeTeam     string
	AwayTeam     string
	CommenceTime time.Time
	Bookmakers   []FeedBookmaker
}

// FeedBookmaker agrupa los mercados de un libro para un evento.
type FeedBookmaker struct {
	Key        string
	Title      string
	LastUpdate time.Time // cero si el proveedor no lo envía
	Markets    []FeedMarket
}

// FeedMarket es un mercado de un libro (h2h, spreads, totals, props).
type FeedMarket struct {
	Key        string
	LastUpdate time.Time
	Outcomes   []FeedOutcome
}

// FeedOutcome es un outcome con su precio decimal.
type FeedOutcome struct {
	Name        string
	Description string
	Price       float64
	Point       *float64
}
