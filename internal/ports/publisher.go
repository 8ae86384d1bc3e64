package ports

import (
	"context"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// SnapshotPublisher replica cada snapshot a un cache externo para otros consumidores.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snapshot *domain.Snapshot) error
}
