// Package history derives UI-ready series from the aggregation cache:
// per-commodity series, filter values, summaries, time-window filtering, and
// daily grouping for charts.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mandiwatch/internal/market"
)

// Range is a chart time window.
type Range string

// Supported chart windows.
const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	RangeAll Range = "all"
)

// Duration returns the window length. ok is false for RangeAll and unknown
// values, which mean "no filtering".
func (r Range) Duration() (time.Duration, bool) {
	switch r {
	case Range7d:
		return 7 * 24 * time.Hour, true
	case Range30d:
		return 30 * 24 * time.Hour, true
	case Range90d:
		return 90 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Summary describes the cached dataset for the UI banner.
type Summary struct {
	TotalEntries int `json:"totalEntries"`
	Commodities  int `json:"commodities"`
	Locations    int `json:"locations"`
}

// DayPoint is one chart point: the calendar day, the arithmetic mean of the
// day's valid prices, and the first change string seen that day. Averaged
// price with first-sample change is deliberate; the change field is a display
// string, not a quantity to average.
type DayPoint struct {
	Date     time.Time       `json:"date"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
	Change   string          `json:"change"`
}

// Grouped is the cache surface the engine reads from.
type Grouped interface {
	ReadGrouped(ctx context.Context) map[market.SeriesKey][]market.Observation
}

// Engine answers history queries over the aggregation cache.
type Engine struct {
	cache Grouped
	now   func() time.Time
}

// NewEngine constructs an Engine over the given cache.
func NewEngine(cache Grouped) *Engine {
	return &Engine{cache: cache, now: time.Now}
}

// PriceHistory returns the series for commodity. With a location, the exact
// series is returned (empty when absent); without one, all series for the
// commodity are concatenated and sorted timestamp-ascending.
func (e *Engine) PriceHistory(ctx context.Context, commodity, location string) []market.Observation {
	data := e.cache.ReadGrouped(ctx)

	if location != "" {
		return data[market.SeriesKey{Commodity: commodity, Location: location}]
	}

	merged := make([]market.Observation, 0)
	for key, series := range data {
		if key.Commodity == commodity {
			merged = append(merged, series...)
		}
	}
	market.SortByTimestamp(merged)
	return merged
}

// Commodities lists distinct commodities across all cached series. Order is
// not significant.
func (e *Engine) Commodities(ctx context.Context) []string {
	data := e.cache.ReadGrouped(ctx)
	seen := make(map[string]struct{}, len(data))
	out := make([]string, 0, len(data))
	for key := range data {
		if _, dup := seen[key.Commodity]; dup {
			continue
		}
		seen[key.Commodity] = struct{}{}
		out = append(out, key.Commodity)
	}
	return out
}

// Locations lists distinct locations among series for commodity.
func (e *Engine) Locations(ctx context.Context, commodity string) []string {
	data := e.cache.ReadGrouped(ctx)
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for key := range data {
		if key.Commodity != commodity {
			continue
		}
		if _, dup := seen[key.Location]; dup {
			continue
		}
		seen[key.Location] = struct{}{}
		out = append(out, key.Location)
	}
	return out
}

// Summarize reports total entries and distinct commodity/location counts
// across all cached series.
func (e *Engine) Summarize(ctx context.Context) Summary {
	data := e.cache.ReadGrouped(ctx)
	commodities := make(map[string]struct{})
	locations := make(map[string]struct{})
	total := 0
	for key, series := range data {
		commodities[key.Commodity] = struct{}{}
		locations[key.Location] = struct{}{}
		total += len(series)
	}
	return Summary{
		TotalEntries: total,
		Commodities:  len(commodities),
		Locations:    len(locations),
	}
}

// FilterWindow keeps entries whose timestamp falls within now-r. RangeAll
// passes everything through. The cutoff derives from call-time now, so
// results must be re-derived per call.
func (e *Engine) FilterWindow(series []market.Observation, r Range) []market.Observation {
	window, ok := r.Duration()
	if !ok {
		return series
	}
	cutoff := e.now().Add(-window)
	out := make([]market.Observation, 0, len(series))
	for _, o := range series {
		if !o.Timestamp.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out
}

// GroupByDay groups a series by the calendar day of each timestamp, averaging
// the valid prices per day and keeping the first change string encountered.
// Entries without a valid price are excluded from the average; a day whose
// entries all lack a valid price is omitted entirely.
func (e *Engine) GroupByDay(series []market.Observation) []DayPoint {
	type bucket struct {
		day       time.Time
		sum       decimal.Decimal
		count     int64
		change    string
		hasChange bool
	}

	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, o := range series {
		day := o.Timestamp
		dayKey := day.Format("2006-01-02")
		b, ok := buckets[dayKey]
		if !ok {
			y, m, d := day.Date()
			b = &bucket{day: time.Date(y, m, d, 0, 0, 0, 0, day.Location())}
			buckets[dayKey] = b
			order = append(order, dayKey)
		}
		if !b.hasChange {
			b.change = o.Change
			b.hasChange = true
		}
		if o.Price.Valid {
			b.sum = b.sum.Add(o.Price.Decimal)
			b.count++
		}
	}

	points := make([]DayPoint, 0, len(order))
	for _, dayKey := range order {
		b := buckets[dayKey]
		if b.count == 0 {
			continue
		}
		points = append(points, DayPoint{
			Date:     b.day,
			AvgPrice: b.sum.Div(decimal.NewFromInt(b.count)),
			Change:   b.change,
		})
	}

	sortDayPoints(points)
	return points
}

func sortDayPoints(points []DayPoint) {
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}
