package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Storage persiste el histórico de snapshots publicados. Es opcional: el
// pipeline no lee nunca de aquí.
type Storage interface {
	// SaveSnapshot persiste el resumen del ciclo y las oportunidades que cambiaron.
	SaveSnapshot(ctx context.Context, snapshot *domain.Snapshot) error

	// GetHistory devuelve las oportunidades vistas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.EVOpportunity, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
