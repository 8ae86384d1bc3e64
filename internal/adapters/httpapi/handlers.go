package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alejandrodnm/oddsignal/internal/domain"
	"github.com/alejandrodnm/oddsignal/internal/scanner"
)

// viewResponse es la forma JSON de todos los endpoints de listas.
type viewResponse[T any] struct {
	Sport       string     `json:"sport"`
	Items       []T        `json:"items"`
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"lastUpdated"`
	AgeSeconds  float64    `json:"ageSeconds"`
	Stale       bool       `json:"stale"`
	Ready       bool       `json:"ready"`
}

func toResponse[T any](v scanner.View[T]) viewResponse[T] {
	resp := viewResponse[T]{
		Sport:      v.Sport.String(),
		Items:      v.Items,
		Count:      len(v.Items),
		AgeSeconds: v.Age.Seconds(),
		Stale:      v.Stale,
		Ready:      v.Ready,
	}
	if v.Ready {
		ts := v.LastUpdated
		resp.LastUpdated = &ts
	}
	return resp
}

type sportStatus struct {
	Sport       string     `json:"sport"`
	State       string     `json:"state"`
	Ready       bool       `json:"ready"`
	Stale       bool       `json:"stale"`
	LastUpdated *time.Time `json:"lastUpdated"`
	AgeSeconds  float64    `json:"ageSeconds"`
	Failures    int64      `json:"failures"`
	LastError   string     `json:"lastError,omitempty"`
}

func toStatus(st scanner.SportStatus) sportStatus {
	out := sportStatus{
		Sport:      st.Sport.String(),
		State:      st.State.String(),
		Ready:      st.Ready,
		Stale:      st.Stale,
		AgeSeconds: st.Age.Seconds(),
		Failures:   st.Failures,
		LastError:  st.LastError,
	}
	if st.Ready {
		ts := st.LastUpdated
		out.LastUpdated = &ts
	}
	return out
}

// handleHealth responde 200 "ok" si todos los deportes están frescos, 200
// "degraded" si alguno está stale y 503 "starting" mientras ninguno ha publicado.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	statuses := s.src.Status()

	ready, fresh := 0, 0
	sports := make([]sportStatus, 0, len(statuses))
	for _, st := range statuses {
		if st.Ready {
			ready++
		}
		if st.Ready && !st.Stale {
			fresh++
		}
		sports = append(sports, toStatus(st))
	}

	status, code := "ok", http.StatusOK
	switch {
	case ready == 0:
		status, code = "starting", http.StatusServiceUnavailable
	case fresh < len(statuses):
		status = "degraded"
	}

	respondJSON(w, code, map[string]any{
		"status": status,
		"sports": sports,
	})
}

func (s *Server) handleSports(w http.ResponseWriter, _ *http.Request) {
	statuses := s.src.Status()
	out := make([]sportStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toStatus(st))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sports": out})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	sport, ok := s.sportParam(w, r)
	if !ok {
		return
	}
	f, err := s.parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.src.Opportunities(sport, f)
	if err != nil {
		s.respondReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(view))
}

func (s *Server) handleArbitrage(w http.ResponseWriter, r *http.Request) {
	sport, ok := s.sportParam(w, r)
	if !ok {
		return
	}
	minProfit, err := floatParam(r, "min_profit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.src.Arbitrage(sport, minProfit)
	if err != nil {
		s.respondReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(view))
}

func (s *Server) handleParlays(w http.ResponseWriter, r *http.Request) {
	sport, ok := s.sportParam(w, r)
	if !ok {
		return
	}

	view, err := s.src.Parlays(sport)
	if err != nil {
		s.respondReadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(view))
}

// sportParam resuelve {sport}; un nombre desconocido se trata como no seguido.
func (s *Server) sportParam(w http.ResponseWriter, r *http.Request) (domain.Sport, bool) {
	name := chi.URLParam(r, "sport")
	sport, err := domain.ParseSport(name)
	if err != nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("sport %q is not tracked", name))
		return domain.SportUnknown, false
	}
	return sport, true
}

func (s *Server) respondReadError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrUntrackedSport) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}

// parseFilter lee min_ev, bet_type, confidence y books.
// confidence y books son listas separadas por comas.
func (s *Server) parseFilter(r *http.Request) (scanner.Filter, error) {
	q := r.URL.Query()

	minEV, err := floatParam(r, "min_ev", s.cfg.DefaultMinEV)
	if err != nil {
		return scanner.Filter{}, err
	}
	f := scanner.Filter{MinEV: minEV}

	if raw := q.Get("bet_type"); raw != "" {
		bt, err := domain.ParseBetType(raw)
		if err != nil {
			return scanner.Filter{}, fmt.Errorf("invalid bet_type %q", raw)
		}
		f.BetType = bt
	}

	for _, raw := range splitList(q.Get("confidence")) {
		c, err := domain.ParseConfidence(raw)
		if err != nil {
			return scanner.Filter{}, fmt.Errorf("invalid confidence %q", raw)
		}
		f.Confidence = append(f.Confidence, c)
	}

	for _, raw := range splitList(q.Get("books")) {
		b, err := domain.ParseBookmaker(raw)
		if err != nil {
			return scanner.Filter{}, fmt.Errorf("invalid bookmaker %q", raw)
		}
		f.Bookmakers = append(f.Bookmakers, b)
	}

	return f, nil
}

func floatParam(r *http.Request, name string, defaultVal float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
