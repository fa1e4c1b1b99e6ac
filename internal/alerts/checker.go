package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mandiwatch/internal/alerting"
	"mandiwatch/internal/market"
)

// defaultSnapshotLimit bounds the fresh read used to build the latest-price
// snapshot.
const defaultSnapshotLimit = 100

// RecentReader provides the fresh observation read a check cycle is built on.
// The aggregation cache is deliberately not used here: alert evaluation wants
// the newest stored prices, not a possibly stale snapshot.
type RecentReader interface {
	GetRecent(ctx context.Context, limit int) ([]market.Observation, error)
}

// Checker runs one fetch + evaluate + notify cycle over the persisted alert
// list.
type Checker struct {
	store    *FileStore
	recent   RecentReader
	notifier alerting.Notifier
	logger   zerolog.Logger
	limit    int
	now      func() time.Time
}

// NewChecker wires a checker. notifier may be nil to evaluate without
// dispatching; a non-positive limit falls back to the default.
func NewChecker(store *FileStore, recent RecentReader, notifier alerting.Notifier, limit int, logger zerolog.Logger) *Checker {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	return &Checker{
		store:    store,
		recent:   recent,
		notifier: notifier,
		logger:   logger.With().Str("component", "alert_checker").Logger(),
		limit:    limit,
		now:      time.Now,
	}
}

// Check loads the alert list, evaluates it against the latest stored prices,
// persists the updated triggered flags, and emits one notification per
// active triggered alert. Repeated checks against an already-triggered alert
// re-notify; there is no debounce.
func (c *Checker) Check(ctx context.Context) ([]Alert, error) {
	list, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	obs, err := c.recent.GetRecent(ctx, c.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch latest prices: %w", err)
	}

	updated := Evaluate(list, LatestByCommodity(obs))
	if err := c.store.Save(updated); err != nil {
		return nil, err
	}

	if c.notifier != nil {
		latest := LatestByCommodity(obs)
		for _, a := range updated {
			if !a.Triggered || !a.IsActive {
				continue
			}
			price, _ := matchPrice(a.Commodity, latest)
			note := alerting.Notification{
				Commodity:   a.Commodity,
				Condition:   string(a.Condition),
				TargetPrice: a.TargetPrice,
				LatestPrice: price,
				TriggeredAt: c.now().UTC(),
			}
			if err := c.notifier.Notify(ctx, note); err != nil {
				c.logger.Error().Err(err).Str("commodity", a.Commodity).Msg("failed to dispatch alert")
			}
		}
	}

	return updated, nil
}
