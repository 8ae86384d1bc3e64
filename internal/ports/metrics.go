package ports

import (
	"time"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// MetricsRecorder recibe las métricas del scanner.
type MetricsRecorder interface {
	RecordCycle(sport domain.Sport, duration time.Duration, snapshot *domain.Snapshot)
	RecordFetchError(sport domain.Sport, kind string)
	RecordSkipped(sport domain.Sport, n int)
	RecordSnapshotAge(sport domain.Sport, age time.Duration)
}
