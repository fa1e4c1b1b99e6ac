// Package service orchestrates the periodic refresh cycle: scrape the feed,
// ingest into the cache (which forwards to the durable store), then run one
// alert check.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mandiwatch/internal/alerts"
	"mandiwatch/internal/cache"
	"mandiwatch/internal/feed"
	"mandiwatch/internal/scheduler"
)

// Service drives fetching, aggregation, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   feed.Fetcher
	cache     *cache.HistoryCache
	checker   *alerts.Checker
	logger    zerolog.Logger
}

// New constructs the refresh service. checker may be nil when alerting is
// disabled or no durable store is configured.
func New(sched *scheduler.Scheduler, fetcher feed.Fetcher, historyCache *cache.HistoryCache, checker *alerts.Checker, logger zerolog.Logger) *Service {
	return &Service{
		scheduler: sched,
		fetcher:   fetcher,
		cache:     historyCache,
		checker:   checker,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the periodic refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Refresh)
}

// Refresh executes one fetch + ingest + alert-check cycle. The fetcher is
// fallback-wrapped, so a scrape failure degrades to the fallback dataset
// instead of failing the tick.
func (s *Service) Refresh(ctx context.Context, tick time.Time) error {
	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch market feed: %w", err)
	}

	obs := snap.Observations()
	s.cache.Ingest(ctx, obs)

	s.logger.Info().
		Time("tick", tick).
		Str("source", snap.Source).
		Int("rows", len(obs)).
		Msg("market snapshot ingested")

	if s.checker != nil {
		if _, err := s.checker.Check(ctx); err != nil {
			s.logger.Error().Err(err).Msg("alert check failed")
		}
	}

	return nil
}
