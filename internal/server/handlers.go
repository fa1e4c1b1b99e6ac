package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"mandiwatch/internal/alerts"
	"mandiwatch/internal/history"
	"mandiwatch/internal/market"
)

// envelope mirrors the success-flag response shape the dashboard checks
// instead of relying on HTTP status codes.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Count     int         `json:"count,omitempty"`
	Source    string      `json:"source,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, envelope{Success: false, Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMarketPrices fetches the current upstream snapshot, ingests it, and
// returns the raw rows. The fetcher is fallback-wrapped, so the response is
// always 200 with a source label showing provenance.
func (s *Server) handleMarketPrices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.fetcher.Fetch(r.Context())
	if err != nil {
		// Only possible without the fallback wrapper; still a soft failure.
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}

	s.cache.Ingest(r.Context(), snap.Observations())

	s.writeJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      snap.Rows,
		Timestamp: snap.FetchedAt.UTC().Format(time.RFC3339),
		Count:     len(snap.Rows),
		Source:    snap.Source,
	})
}

// handleStoredHistory serves durable-store reads: per-commodity history
// within a trailing day window, or the most recent records across all
// commodities.
func (s *Server) handleStoredHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeFailure(w, http.StatusOK, "durable store not configured")
		return
	}

	commodity := r.URL.Query().Get("commodity")
	days := intQuery(r, "days", 30)
	limit := intQuery(r, "limit", 100)

	var obs []market.Observation
	var err error
	if commodity != "" {
		obs, err = s.store.GetHistory(r.Context(), commodity, days)
	} else {
		obs, err = s.store.GetRecent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored history read failed")
		s.writeFailure(w, http.StatusOK, "history unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: obs, Count: len(obs)})
}

type chartResponse struct {
	Series []market.Observation `json:"series"`
	Daily  []history.DayPoint   `json:"daily"`
}

// handleChartHistory serves the cached series for charting, window-filtered
// and day-grouped.
func (s *Server) handleChartHistory(w http.ResponseWriter, r *http.Request) {
	commodity := r.URL.Query().Get("commodity")
	if commodity == "" {
		s.writeFailure(w, http.StatusBadRequest, "commodity query parameter is required")
		return
	}
	location := r.URL.Query().Get("location")
	rng := history.Range(r.URL.Query().Get("range"))
	if rng == "" {
		rng = history.Range30d
	}

	series := s.engine.PriceHistory(r.Context(), commodity, location)
	series = s.engine.FilterWindow(series, rng)

	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: chartResponse{
			Series: series,
			Daily:  s.engine.GroupByDay(series),
		},
		Count: len(series),
	})
}

func (s *Server) handleCommodities(w http.ResponseWriter, r *http.Request) {
	commodities := s.engine.Commodities(r.Context())
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: commodities, Count: len(commodities)})
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	commodity := chi.URLParam(r, "commodity")
	locations := s.engine.Locations(r.Context(), commodity)
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: locations, Count: len(locations)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.engine.Summarize(r.Context())})
}

type addAlertRequest struct {
	Commodity   string  `json:"commodity"`
	TargetPrice float64 `json:"targetPrice"`
	Condition   string  `json:"condition"`
}

func (s *Server) handleAddAlert(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		s.writeFailure(w, http.StatusOK, "alerting not configured")
		return
	}

	var req addAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Commodity == "" || req.TargetPrice <= 0 {
		s.writeFailure(w, http.StatusBadRequest, "commodity and a positive targetPrice are required")
		return
	}
	condition, err := alerts.ParseCondition(req.Condition)
	if err != nil {
		s.writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	alert := alerts.New(req.Commodity, decimal.NewFromFloat(req.TargetPrice), condition)
	if err := s.alertStore.Add(alert); err != nil {
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, envelope{Success: true, Data: alert})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, _ *http.Request) {
	if s.alertStore == nil {
		s.writeFailure(w, http.StatusOK, "alerting not configured")
		return
	}
	list, err := s.alertStore.Load()
	if err != nil {
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: list, Count: len(list)})
}

func (s *Server) handleToggleAlert(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		s.writeFailure(w, http.StatusOK, "alerting not configured")
		return
	}
	alert, err := s.alertStore.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			s.writeFailure(w, http.StatusNotFound, "alert not found")
			return
		}
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: alert})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		s.writeFailure(w, http.StatusOK, "alerting not configured")
		return
	}
	if err := s.alertStore.Delete(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			s.writeFailure(w, http.StatusNotFound, "alert not found")
			return
		}
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		s.writeFailure(w, http.StatusOK, "alert checking requires a configured database")
		return
	}
	updated, err := s.checker.Check(r.Context())
	if err != nil {
		s.writeFailure(w, http.StatusOK, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: updated, Count: len(updated)})
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
