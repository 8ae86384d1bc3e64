// Package httpapi sirve por HTTP los snapshots vigentes del scanner.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/alejandrodnm/oddsignal/internal/scanner"
)

const requestTimeout = 30 * time.Second

// SnapshotSource es el lado de lectura del scanner.
type SnapshotSource interface {
	Opportunities(sport domain.Sport, f scanner.Filter) (scanner.View[domain.EVOpportunity], error)
	Arbitrage(sport domain.Sport, minProfit float64) (scanner.View[domain.ArbitrageOpportunity], error)
	Parlays(sport domain.Sport) (scanner.View[domain.Parlay], error)
	Status() []scanner.SportStatus
}

// Config controla la API HTTP.
type Config struct {
	CORSOrigins []string
	// DefaultMinEV se aplica si la petición no trae min_ev.
	DefaultMinEV float64
	// Metrics se monta en /metrics si no es nil.
	Metrics http.Handler
}

// Server expone la API de lectura.
type Server struct {
	src SnapshotSource
	cfg Config
}

// NewServer crea la API sobre una fuente de snapshots.
func NewServer(src SnapshotSource, cfg Config) *Server {
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{src: src, cfg: cfg}
}

// Router construye el router chi con middleware y rutas.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sports", s.handleSports)
		r.Route("/sports/{sport}", func(r chi.Router) {
			r.Get("/opportunities", s.handleOpportunities)
			r.Get("/arbitrage", s.handleArbitrage)
			r.Get("/parlays", s.handleParlays)
		})
	})

	return r
}

// requestLogger registra cada petición en debug y los 5xx en warn.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
