// Package cache keeps a session-local, freshness-bounded materialisation of
// grouped price observations so read paths do not hit the durable store on
// every interaction.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"mandiwatch/internal/market"
	"mandiwatch/internal/storage"
)

// DefaultFreshness is the window during which the in-memory snapshot is
// served without re-reading the durable store.
const DefaultFreshness = 5 * time.Minute

// DefaultFetchLimit bounds how many records a full refresh pulls.
const DefaultFetchLimit = 500

// Reader is the durable-store surface the cache depends on.
type Reader interface {
	StoreObservations(ctx context.Context, batch []market.Observation) storage.StoreResult
	GetRecent(ctx context.Context, limit int) ([]market.Observation, error)
}

// Options tune cache behaviour.
type Options struct {
	Freshness  time.Duration
	FetchLimit int
}

// HistoryCache groups observations per series key with bounded freshness.
// Instances are dependency-injected; there is no package-level singleton.
type HistoryCache struct {
	store      Reader
	logger     zerolog.Logger
	freshness  time.Duration
	fetchLimit int
	now        func() time.Time

	mu          sync.Mutex
	series      map[market.SeriesKey][]market.Observation
	lastRefresh time.Time

	refresh singleflight.Group
}

// New constructs a HistoryCache. store may be nil, in which case the cache is
// purely in-memory (ingested data is still served, durable writes are
// skipped).
func New(store Reader, opts Options, logger zerolog.Logger) *HistoryCache {
	freshness := opts.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	fetchLimit := opts.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}

	return &HistoryCache{
		store:      store,
		logger:     logger.With().Str("component", "history_cache").Logger(),
		freshness:  freshness,
		fetchLimit: fetchLimit,
		now:        time.Now,
		series:     make(map[market.SeriesKey][]market.Observation),
	}
}

// Ingest appends a batch to the in-memory series and best-effort forwards it
// to the durable store. A store failure never blocks the cache update: the
// cache is the source of truth for the current session even when persistence
// fails. Ingest does not reset the freshness timer.
func (c *HistoryCache) Ingest(ctx context.Context, batch []market.Observation) {
	if len(batch) == 0 {
		return
	}

	c.mu.Lock()
	touched := make(map[market.SeriesKey]struct{}, len(batch))
	for _, o := range batch {
		key := o.Key()
		c.series[key] = append(c.series[key], o)
		touched[key] = struct{}{}
	}
	for key := range touched {
		s := c.series[key]
		market.SortByTimestamp(s)
		if len(s) > market.SeriesCap {
			s = s[len(s)-market.SeriesCap:]
		}
		c.series[key] = s
	}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if res := c.store.StoreObservations(ctx, batch); res.Err != nil {
		c.logger.Warn().Err(res.Err).
			Int("stored", res.Stored).
			Int("batch", len(batch)).
			Msg("durable write failed; cache retains batch")
	}
}

// ReadGrouped returns the grouped snapshot. Within the freshness window the
// in-memory map is served directly; past it, one full refresh fetch is issued
// against the store and concurrent expired readers coalesce onto it. A
// refresh that fails or returns zero records leaves existing content
// untouched: stale-but-present data is preferred over an empty result.
func (c *HistoryCache) ReadGrouped(ctx context.Context) map[market.SeriesKey][]market.Observation {
	c.mu.Lock()
	if c.freshLocked() || c.store == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	_, _, _ = c.refresh.Do("refresh", func() (interface{}, error) {
		c.mu.Lock()
		fresh := c.freshLocked()
		c.mu.Unlock()
		if fresh {
			return nil, nil
		}

		recent, err := c.store.GetRecent(ctx, c.fetchLimit)
		if err != nil {
			c.logger.Warn().Err(err).Msg("refresh fetch failed; serving cached data")
			return nil, nil
		}
		if len(recent) == 0 {
			c.logger.Debug().Msg("refresh fetch returned no records; keeping cached data")
			return nil, nil
		}

		grouped := groupByKey(recent)
		c.mu.Lock()
		c.series = grouped
		c.lastRefresh = c.now()
		c.mu.Unlock()
		return nil, nil
	})

	c.mu.Lock()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return snap
}

// Len reports the total number of cached observations.
func (c *HistoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, s := range c.series {
		total += len(s)
	}
	return total
}

func (c *HistoryCache) freshLocked() bool {
	return !c.lastRefresh.IsZero() && c.now().Sub(c.lastRefresh) < c.freshness
}

// snapshotLocked copies slice headers and backing data so callers never
// observe a series mutated by a later ingest.
func (c *HistoryCache) snapshotLocked() map[market.SeriesKey][]market.Observation {
	snap := make(map[market.SeriesKey][]market.Observation, len(c.series))
	for key, s := range c.series {
		cp := make([]market.Observation, len(s))
		copy(cp, s)
		snap[key] = cp
	}
	return snap
}

func groupByKey(obs []market.Observation) map[market.SeriesKey][]market.Observation {
	grouped := make(map[market.SeriesKey][]market.Observation)
	for _, o := range obs {
		key := o.Key()
		grouped[key] = append(grouped[key], o)
	}
	for key, s := range grouped {
		market.SortByTimestamp(s)
		if len(s) > market.SeriesCap {
			s = s[len(s)-market.SeriesCap:]
		}
		grouped[key] = s
	}
	return grouped
}
