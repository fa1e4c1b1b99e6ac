// Package market defines the price observation model shared by the feed,
// storage, cache, and query layers.
package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeriesCap is the maximum number of observations retained per series.
// Oldest entries are dropped first when a series exceeds it.
const SeriesCap = 100

// Observation is a single captured commodity price row. Price carries the
// parsed numeric value; Valid=false means the source string did not parse to
// a finite number. Such rows are kept for display but excluded from all
// aggregate math.
type Observation struct {
	Commodity     string              `json:"commodity"`
	Location      string              `json:"location"`
	Price         decimal.NullDecimal `json:"price"`
	RawPrice      string              `json:"rawPrice"`
	Change        string              `json:"change"`
	ChangePercent string              `json:"changePercent,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
	CreatedAt     time.Time           `json:"createdAt,omitempty"`
}

// SeriesKey identifies one commodity/location series. A struct key avoids the
// ambiguity of separator-joined strings when a location itself contains the
// separator.
type SeriesKey struct {
	Commodity string
	Location  string
}

// Key returns the series this observation belongs to.
func (o Observation) Key() SeriesKey {
	return SeriesKey{Commodity: o.Commodity, Location: o.Location}
}

// SortByTimestamp orders observations oldest-first in place. The sort is
// stable so that insertion order survives among equal timestamps.
func SortByTimestamp(obs []Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})
}
