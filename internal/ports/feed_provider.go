package ports

import (
	"context"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// FeedProvider obtiene los eventos con cotizaciones de un deporte.
type FeedProvider interface {
	// FetchEvents devuelve los eventos del deporte con la clave del proveedor
	// dada. Los fallos se clasifican como domain.ErrFeedTimeout o
	// domain.ErrFeedUnavailable.
	FetchEvents(ctx context.Context, sportKey string) ([]domain.FeedEvent, error)
}
