package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SourceFallback labels the built-in dataset substituted when scraping fails.
const SourceFallback = "fallback"

// fallbackRows mirrors the sample rows served when the upstream page is
// unreachable or empty.
var fallbackRows = []Row{
	{Commodity: "Wheat", Location: "Delhi", Time: "14:30", Price: "2,450", Change: "+25", ChangePercent: "+1.03"},
	{Commodity: "Rice", Location: "Mumbai", Time: "14:30", Price: "3,200", Change: "-15", ChangePercent: "-0.47"},
	{Commodity: "Maize", Location: "Karnataka", Time: "14:30", Price: "1,850", Change: "+10", ChangePercent: "+0.54"},
	{Commodity: "Pulses", Location: "Rajasthan", Time: "14:30", Price: "4,100", Change: "+30", ChangePercent: "+0.74"},
	{Commodity: "Cotton", Location: "Gujarat", Time: "14:30", Price: "6,750", Change: "-45", ChangePercent: "-0.66"},
}

// FallbackSnapshot returns a copy of the built-in dataset stamped at ts.
func FallbackSnapshot(ts time.Time) Snapshot {
	rows := make([]Row, len(fallbackRows))
	copy(rows, fallbackRows)
	return Snapshot{Rows: rows, Source: SourceFallback, FetchedAt: ts}
}

// withFallback wraps a primary fetcher so that any scrape error, timeout, or
// empty result is substituted with the fallback dataset. The substitution is
// visible to callers through Snapshot.Source only; Fetch never returns an
// error.
type withFallback struct {
	primary Fetcher
	logger  zerolog.Logger
}

// WithFallback decorates primary so read paths never see a hard scrape
// failure.
func WithFallback(primary Fetcher, logger zerolog.Logger) Fetcher {
	return &withFallback{
		primary: primary,
		logger:  logger.With().Str("component", "feed_fallback").Logger(),
	}
}

func (f *withFallback) Fetch(ctx context.Context) (Snapshot, error) {
	snap, err := f.primary.Fetch(ctx)
	if err != nil {
		f.logger.Warn().Err(err).Msg("scrape failed; serving fallback dataset")
		return FallbackSnapshot(time.Now().UTC()), nil
	}
	if len(snap.Rows) == 0 {
		f.logger.Warn().Msg("scrape returned no rows; serving fallback dataset")
		return FallbackSnapshot(time.Now().UTC()), nil
	}
	return snap, nil
}

var _ Fetcher = (*withFallback)(nil)
