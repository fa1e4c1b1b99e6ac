package alerts

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"mandiwatch/internal/market"
)

// Evaluate compares each alert against the latest known price per commodity
// and returns the updated list. Matching is case-insensitive bidirectional
// substring containment: alert commodity names and market row names vary
// across data sources, and the tolerance is intentional. Alerts with no
// matching commodity keep their previous Triggered value.
func Evaluate(list []Alert, latest map[string]decimal.Decimal) []Alert {
	out := make([]Alert, len(list))
	for i, a := range list {
		out[i] = a
		price, ok := matchPrice(a.Commodity, latest)
		if !ok {
			continue
		}
		switch a.Condition {
		case ConditionAbove:
			out[i].Triggered = price.GreaterThanOrEqual(a.TargetPrice)
		case ConditionBelow:
			out[i].Triggered = price.LessThanOrEqual(a.TargetPrice)
		}
	}
	return out
}

// LatestByCommodity reduces a newest-first observation list to the most
// recent valid price per commodity. Observations without a parsable price are
// skipped rather than treated as zero.
func LatestByCommodity(obs []market.Observation) map[string]decimal.Decimal {
	latest := make(map[string]decimal.Decimal)
	for _, o := range obs {
		if !o.Price.Valid {
			continue
		}
		if _, seen := latest[o.Commodity]; seen {
			continue
		}
		latest[o.Commodity] = o.Price.Decimal
	}
	return latest
}

// matchPrice scans candidates in sorted name order so that an alert matching
// several commodities (say "Rice" against both "Rice" and "Rice Basmati")
// resolves to the same price on every evaluation.
func matchPrice(commodity string, latest map[string]decimal.Decimal) (decimal.Decimal, bool) {
	want := strings.ToLower(strings.TrimSpace(commodity))
	if want == "" {
		return decimal.Decimal{}, false
	}
	names := make([]string, 0, len(latest))
	for name := range latest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		have := strings.ToLower(strings.TrimSpace(name))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			return latest[name], true
		}
	}
	return decimal.Decimal{}, false
}
