package oddsapi

import (
	"strings"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// mapEvents convierte los DTOs a domain.FeedEvent. No valida claves ni
// precios: eso es trabajo del normalizer.
func mapEvents(raw []eventDTO) []domain.FeedEvent {
	events := make([]domain.FeedEvent, 0, len(raw))
	for _, r := range raw {
		events = append(events, mapEvent(r))
	}
	return events
}

func mapEvent(r eventDTO) domain.FeedEvent {
	ev := domain.FeedEvent{
		ID:           r.ID,
		SportKey:     r.SportKey,
		HomeTeam:     strings.TrimSpace(r.HomeTeam),
		AwayTeam:     strings.TrimSpace(r.AwayTeam),
		CommenceTime: r.CommenceTime.UTC(),
		Bookmakers:   make([]domain.FeedBookmaker, 0, len(r.Bookmakers)),
	}
	for _, b := range r.Bookmakers {
		fb := domain.FeedBookmaker{
			Key:        b.Key,
			Title:      b.Title,
			LastUpdate: b.LastUpdate,
			Markets:    make([]domain.FeedMarket, 0, len(b.Markets)),
		}
		for _, m := range b.Markets {
			fm := domain.FeedMarket{
				Key:        m.Key,
				LastUpdate: m.LastUpdate,
				Outcomes:   make([]domain.FeedOutcome, 0, len(m.Outcomes)),
			}
			for _, o := range m.Outcomes {
				fm.Outcomes = append(fm.Outcomes, domain.FeedOutcome{
					Name:        o.Name,
					Description: o.Description,
					Price:       o.Price,
					Point:       o.Point,
				})
			}
			fb.Markets = append(fb.Markets, fm)
		}
		ev.Bookmakers = append(ev.Bookmakers, fb)
	}
	return ev
}
