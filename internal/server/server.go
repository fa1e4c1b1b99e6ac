// Package server exposes the history and alert surface over an HTTP JSON
// API. Read endpoints never surface upstream or store trouble as hard
// errors: they serve cached or fallback data and label provenance via a
// source field.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"mandiwatch/internal/alerts"
	"mandiwatch/internal/cache"
	"mandiwatch/internal/config"
	"mandiwatch/internal/feed"
	"mandiwatch/internal/history"
	"mandiwatch/internal/storage"
)

// Server bundles the HTTP listener and its handler dependencies.
type Server struct {
	cfg        config.ServerConfig
	fetcher    feed.Fetcher
	cache      *cache.HistoryCache
	engine     *history.Engine
	store      storage.ObservationStore
	alertStore *alerts.FileStore
	checker    *alerts.Checker
	logger     zerolog.Logger
	httpServer *http.Server
}

// Options carry the handler dependencies. store, alertStore, and checker may
// be nil; the corresponding endpoints degrade or report unavailability.
type Options struct {
	Fetcher    feed.Fetcher
	Cache      *cache.HistoryCache
	Engine     *history.Engine
	Store      storage.ObservationStore
	AlertStore *alerts.FileStore
	Checker    *alerts.Checker
}

// New constructs the API server.
func New(cfg config.ServerConfig, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		fetcher:    opts.Fetcher,
		cache:      opts.Cache,
		engine:     opts.Engine,
		store:      opts.Store,
		alertStore: opts.AlertStore,
		checker:    opts.Checker,
		logger:     logger.With().Str("component", "http_server").Logger(),
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/market-prices", s.handleMarketPrices)
		r.Get("/market-prices/history", s.handleStoredHistory)
		r.Get("/history", s.handleChartHistory)
		r.Get("/commodities", s.handleCommodities)
		r.Get("/commodities/{commodity}/locations", s.handleLocations)
		r.Get("/summary", s.handleSummary)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Post("/", s.handleAddAlert)
			r.Post("/check", s.handleCheckAlerts)
			r.Post("/{id}/toggle", s.handleToggleAlert)
			r.Delete("/{id}", s.handleDeleteAlert)
		})
	})
	r.Get("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// corsMiddleware allows browser clients on other origins; the original
// consumer is a web dashboard.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
