package domain

import (
	"strconv"
	"strings"
)

// Market agrupa las líneas de un conjunto de outcomes mutuamente excluyentes
// de un evento: home/away de un moneyline, los dos lados de un spread al mismo
// punto, over/under de un total al mismo punto, o over/under de un prop.
type Market struct {
	Game      GameInfo
	BetType   BetType
	MarketKey string
	Outcomes  []MarketOutcome
}

// MarketOutcome es un outcome del mercado con una línea por libro.
type MarketOutcome struct {
	Name        string
	Description string
	Point       *float64
	Lines       []SportsbookLine
}

// Selection devuelve la clave legible del outcome: jugador, nombre y punto.
func (o MarketOutcome) Selection() string {
	parts := make([]string, 0, 3)
	if o.Description != "" {
		parts = append(parts, o.Description)
	}
	parts = append(parts, o.Name)
	if o.Point != nil {
		parts = append(parts, FormatPoint(*o.Point, false))
	}
	return strings.Join(parts, " ")
}

// FormatPoint formatea un punto. Con signed, los positivos llevan "+".
func FormatPoint(p float64, signed bool) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if signed && p > 0 {
		return "+" + s
	}
	return s
}

// BestLines devuelve la mejor línea de cada outcome, en el orden de Outcomes.
// Un outcome sin líneas hace fallar la llamada con ErrDegenerateMarket.
func (m Market) BestLines() ([]SportsbookLine, error) {
	out := make([]SportsbookLine, 0, len(m.Outcomes))
	for _, o := range m.Outcomes {
		best, err := BestLine(o.Lines)
		if err != nil {
			return nil, err
		}
		out = append(out, best)
	}
	return out, nil
}
