package alerts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mandiwatch/internal/market"
)

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEvaluateAboveTriggers(t *testing.T) {
	a := New("Wheat", price(2400), ConditionAbove)
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat": price(2450)})
	if !out[0].Triggered {
		t.Fatal("above-condition alert must trigger at 2450 >= 2400")
	}
}

func TestEvaluateBelowTriggers(t *testing.T) {
	a := New("Rice", price(3300), ConditionBelow)
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Rice": price(3200)})
	if !out[0].Triggered {
		t.Fatal("below-condition alert must trigger at 3200 <= 3300")
	}
}

func TestEvaluateBoundaryInclusive(t *testing.T) {
	a := New("Wheat", price(2450), ConditionAbove)
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat": price(2450)})
	if !out[0].Triggered {
		t.Fatal("threshold comparison is inclusive")
	}
}

func TestEvaluateClearsTriggeredWhenBackBelow(t *testing.T) {
	a := New("Wheat", price(2400), ConditionAbove)
	a.Triggered = true
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat": price(2300)})
	if out[0].Triggered {
		t.Fatal("alert must untrigger when price falls back under the target")
	}
}

func TestEvaluateSubstringMatchBothDirections(t *testing.T) {
	a := New("wheat", price(2400), ConditionAbove)
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat (Sharbati)": price(2450)})
	if !out[0].Triggered {
		t.Fatal("market name containing alert commodity must match")
	}

	b := New("Basmati Rice", price(3000), ConditionAbove)
	out = Evaluate([]Alert{b}, map[string]decimal.Decimal{"Rice": price(3200)})
	if !out[0].Triggered {
		t.Fatal("alert commodity containing market name must match")
	}
}

func TestEvaluateMultiMatchIsDeterministic(t *testing.T) {
	a := New("Rice", price(3300), ConditionBelow)
	snapshot := map[string]decimal.Decimal{
		"Rice Basmati": price(9999),
		"Rice":         price(3200),
	}

	// "Rice" sorts before "Rice Basmati", so the exact name wins every time
	// regardless of map iteration order.
	for i := 0; i < 20; i++ {
		out := Evaluate([]Alert{a}, snapshot)
		if !out[0].Triggered {
			t.Fatalf("run %d: alert must resolve to Rice at 3200, not Rice Basmati", i)
		}
	}
}

func TestEvaluateNoMatchKeepsPreviousState(t *testing.T) {
	a := New("Cotton", price(6000), ConditionAbove)
	a.Triggered = true
	out := Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat": price(2450)})
	if !out[0].Triggered {
		t.Fatal("unmatched alert must keep its previous triggered value")
	}

	a.Triggered = false
	out = Evaluate([]Alert{a}, map[string]decimal.Decimal{"Wheat": price(2450)})
	if out[0].Triggered {
		t.Fatal("unmatched alert must not be marked triggered")
	}
}

func TestEvaluateIdempotentForFixedSnapshot(t *testing.T) {
	list := []Alert{
		New("Wheat", price(2400), ConditionAbove),
		New("Rice", price(3000), ConditionBelow),
	}
	snapshot := map[string]decimal.Decimal{"Wheat": price(2450), "Rice": price(3200)}

	first := Evaluate(list, snapshot)
	second := Evaluate(first, snapshot)
	for i := range first {
		if first[i].Triggered != second[i].Triggered {
			t.Fatalf("alert %d triggered state changed on re-evaluation", i)
		}
	}
}

func TestLatestByCommodity(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	obs := []market.Observation{
		{Commodity: "Wheat", Price: market.ParsePrice("2,450"), Timestamp: now},
		{Commodity: "Wheat", Price: market.ParsePrice("2,400"), Timestamp: now.Add(-time.Hour)},
		{Commodity: "Rice", Price: market.ParsePrice("N/A"), Timestamp: now},
		{Commodity: "Rice", Price: market.ParsePrice("3,200"), Timestamp: now.Add(-time.Hour)},
	}

	latest := LatestByCommodity(obs)
	if !latest["Wheat"].Equal(price(2450)) {
		t.Fatalf("wheat latest = %s, want 2450 (newest-first wins)", latest["Wheat"])
	}
	if !latest["Rice"].Equal(price(3200)) {
		t.Fatalf("rice latest = %s, want 3200 (invalid price skipped)", latest["Rice"])
	}
}
