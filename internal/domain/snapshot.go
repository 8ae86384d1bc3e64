package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot es el resultado completo de un ciclo para un deporte. Se publica de
// una vez y se reemplaza entero en el siguiente ciclo; nadie lo modifica.
type Snapshot struct {
	ID            uuid.UUID              `json:"id"`
	Sport         Sport                  `json:"sport"`
	Events        int                    `json:"events"`
	Opportunities []EVOpportunity        `json:"opportunities"`
	Arbitrages    []ArbitrageOpportunity `json:"arbitrages"`
	Parlays       []Parlay               `json:"parlays"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Summary cuenta oportunidades por confianza.
func (s *Snapshot) Summary() (high, medium, low int) {
	for _, o := range s.Opportunities {
		switch o.Confidence {
		case ConfidenceHigh:
			high++
		case ConfidenceMedium:
			medium++
		default:
			low++
		}
	}
	return
}
