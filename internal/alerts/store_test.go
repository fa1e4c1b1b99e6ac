package alerts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mandiwatch/internal/alerting"
	"mandiwatch/internal/market"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "alerts.json"))
}

func TestFileStoreMissingFileIsEmptyList(t *testing.T) {
	s := tempStore(t)
	list, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list = %d entries, want 0", len(list))
	}
}

func TestFileStoreAddToggleDelete(t *testing.T) {
	s := tempStore(t)

	a := New("Wheat", decimal.NewFromInt(2400), ConditionAbove)
	if err := s.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}

	list, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID || !list[0].IsActive {
		t.Fatalf("unexpected list after add: %#v", list)
	}

	toggled, err := s.Toggle(a.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Fatal("toggle must flip IsActive")
	}

	if _, err := s.Toggle("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("toggle missing id: err = %v, want ErrNotFound", err)
	}

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: err = %v, want ErrNotFound", err)
	}

	list, _ = s.Load()
	if len(list) != 0 {
		t.Fatalf("list after delete = %d entries", len(list))
	}
}

func TestFileStoreOverwritesWholeSlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.json")
	s := NewFileStore(path)

	if err := s.Save([]Alert{New("Wheat", decimal.NewFromInt(1), ConditionAbove)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save([]Alert{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("slot content = %q, want full overwrite to []", string(data))
	}
}

type staticRecent struct {
	obs []market.Observation
}

func (s staticRecent) GetRecent(context.Context, int) ([]market.Observation, error) {
	return s.obs, nil
}

type countingNotifier struct {
	notes []alerting.Notification
}

func (c *countingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	c.notes = append(c.notes, note)
	return nil
}

func TestCheckerTriggersAndNotifies(t *testing.T) {
	s := tempStore(t)
	a := New("Wheat", decimal.NewFromInt(2400), ConditionAbove)
	if err := s.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}

	recent := staticRecent{obs: []market.Observation{{
		Commodity: "Wheat",
		Location:  "Delhi",
		Price:     market.ParsePrice("2,450"),
		Timestamp: time.Now(),
	}}}
	notifier := &countingNotifier{}
	checker := NewChecker(s, recent, notifier, 0, zerolog.Nop())

	updated, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !updated[0].Triggered {
		t.Fatal("alert must be triggered")
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.notes))
	}

	// Triggered state must be persisted.
	list, _ := s.Load()
	if !list[0].Triggered {
		t.Fatal("triggered flag not persisted")
	}

	// Re-checking re-notifies: there is no debounce.
	if _, err := checker.Check(context.Background()); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if len(notifier.notes) != 2 {
		t.Fatalf("notifications after re-check = %d, want 2", len(notifier.notes))
	}
}

type limitRecorder struct {
	obs   []market.Observation
	limit int
}

func (r *limitRecorder) GetRecent(_ context.Context, limit int) ([]market.Observation, error) {
	r.limit = limit
	return r.obs, nil
}

func TestCheckerUsesConfiguredSnapshotLimit(t *testing.T) {
	s := tempStore(t)
	if err := s.Add(New("Wheat", decimal.NewFromInt(2400), ConditionAbove)); err != nil {
		t.Fatalf("add: %v", err)
	}

	recent := &limitRecorder{obs: []market.Observation{{
		Commodity: "Wheat",
		Price:     market.ParsePrice("2,450"),
		Timestamp: time.Now(),
	}}}

	checker := NewChecker(s, recent, nil, 250, zerolog.Nop())
	if _, err := checker.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if recent.limit != 250 {
		t.Fatalf("snapshot limit = %d, want 250", recent.limit)
	}

	// Non-positive limit falls back to the default.
	checker = NewChecker(s, recent, nil, 0, zerolog.Nop())
	if _, err := checker.Check(context.Background()); err != nil {
		t.Fatalf("check: %v", err)
	}
	if recent.limit != defaultSnapshotLimit {
		t.Fatalf("snapshot limit = %d, want %d", recent.limit, defaultSnapshotLimit)
	}
}

func TestCheckerSkipsInactiveAlerts(t *testing.T) {
	s := tempStore(t)
	a := New("Wheat", decimal.NewFromInt(2400), ConditionAbove)
	a.IsActive = false
	if err := s.Add(a); err != nil {
		t.Fatalf("add: %v", err)
	}

	recent := staticRecent{obs: []market.Observation{{
		Commodity: "Wheat",
		Price:     market.ParsePrice("2,450"),
		Timestamp: time.Now(),
	}}}
	notifier := &countingNotifier{}
	checker := NewChecker(s, recent, notifier, 0, zerolog.Nop())

	updated, err := checker.Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !updated[0].Triggered {
		t.Fatal("inactive alerts are still evaluated")
	}
	if len(notifier.notes) != 0 {
		t.Fatal("inactive alerts must not notify")
	}
}
