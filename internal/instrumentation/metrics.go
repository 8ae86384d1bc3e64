// Package instrumentation expone las métricas Prometheus del scanner.
package instrumentation

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// Metrics implementa ports.MetricsRecorder sobre un registry propio, no el
// global de prometheus.
type Metrics struct {
	registry *prometheus.Registry

	CycleDuration *prometheus.HistogramVec
	CyclesTotal   *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	SkippedItems  *prometheus.CounterVec
	SnapshotAge   *prometheus.GaugeVec
	Opportunities *prometheus.GaugeVec
	Arbitrages    *prometheus.GaugeVec
	Parlays       *prometheus.GaugeVec
}

// NewMetrics crea y registra todas las métricas del scanner.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oddsignal_cycle_duration_seconds",
			Help:    "Time to fetch, normalize and score one sport",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"sport"}),

		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsignal_cycles_total",
			Help: "Published snapshots per sport",
		}, []string{"sport"}),

		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsignal_fetch_errors_total",
			Help: "Failed feed fetches by sport and kind (timeout, unavailable, canceled)",
		}, []string{"sport", "kind"}),

		SkippedItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oddsignal_skipped_items_total",
			Help: "Quotes, markets or events dropped during normalization",
		}, []string{"sport"}),

		SnapshotAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsignal_snapshot_age_seconds",
			Help: "Age of the current snapshot per sport",
		}, []string{"sport"}),

		Opportunities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsignal_opportunities",
			Help: "Opportunities in the current snapshot by confidence",
		}, []string{"sport", "confidence"}),

		Arbitrages: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsignal_arbitrages",
			Help: "Arbitrage opportunities in the current snapshot",
		}, []string{"sport"}),

		Parlays: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oddsignal_parlays",
			Help: "Parlay suggestions in the current snapshot",
		}, []string{"sport"}),
	}
}

// Registry devuelve el registry de estas métricas.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler sirve el registry en formato de exposición Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCycle registra un ciclo publicado.
func (m *Metrics) RecordCycle(sport domain.Sport, duration time.Duration, snap *domain.Snapshot) {
	label := sport.String()
	m.CycleDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.CyclesTotal.WithLabelValues(label).Inc()
	if snap == nil {
		return
	}

	high, medium, low := snap.Summary()
	m.Opportunities.WithLabelValues(label, domain.ConfidenceHigh.String()).Set(float64(high))
	m.Opportunities.WithLabelValues(label, domain.ConfidenceMedium.String()).Set(float64(medium))
	m.Opportunities.WithLabelValues(label, domain.ConfidenceLow.String()).Set(float64(low))
	m.Arbitrages.WithLabelValues(label).Set(float64(len(snap.Arbitrages)))
	m.Parlays.WithLabelValues(label).Set(float64(len(snap.Parlays)))
}

// RecordFetchError incrementa el contador de errores de fetch.
func (m *Metrics) RecordFetchError(sport domain.Sport, kind string) {
	m.FetchErrors.WithLabelValues(sport.String(), kind).Inc()
}

// RecordSkipped suma n items descartados.
func (m *Metrics) RecordSkipped(sport domain.Sport, n int) {
	if n <= 0 {
		return
	}
	m.SkippedItems.WithLabelValues(sport.String()).Add(float64(n))
}

// RecordSnapshotAge fija el gauge de antigüedad.
func (m *Metrics) RecordSnapshotAge(sport domain.Sport, age time.Duration) {
	m.SnapshotAge.WithLabelValues(sport.String()).Set(age.Seconds())
}
