package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// FixtureFeed sirve eventos desde ficheros JSON con el formato de la API,
// uno por deporte: {dir}/{sportKey}.json. Se usa en -dry-run.
type FixtureFeed struct {
	dir string
}

// NewFixtureFeed crea un FixtureFeed sobre el directorio dado.
func NewFixtureFeed(dir string) *FixtureFeed {
	return &FixtureFeed{dir: dir}
}

// FetchEvents lee y decodifica el fichero del deporte.
func (f *FixtureFeed) FetchEvents(ctx context.Context, sportKey string) ([]domain.FeedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("oddsapi.FixtureFeed: %w: %w", domain.ErrFeedUnavailable, err)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, sportKey+".json"))
	if err != nil {
		return nil, fmt.Errorf("oddsapi.FixtureFeed: %s: %w: %w", sportKey, domain.ErrFeedUnavailable, err)
	}
	var raw []eventDTO
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("oddsapi.FixtureFeed: decode %s: %w: %w", sportKey, domain.ErrFeedUnavailable, err)
	}
	return mapEvents(raw), nil
}
