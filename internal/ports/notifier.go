package ports

import (
	"context"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Notifier presenta cada snapshot publicado al usuario.
type Notifier interface {
	// Notify muestra las oportunidades del snapshot ya ordenadas.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, snapshot *domain.Snapshot) error
}
