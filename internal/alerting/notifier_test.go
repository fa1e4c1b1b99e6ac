package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testNote() Notification {
	return Notification{
		Commodity:   "Wheat",
		Condition:   "above",
		TargetPrice: decimal.NewFromInt(2400),
		LatestPrice: decimal.NewFromInt(2450),
		TriggeredAt: time.Now(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id = %q", received["chat_id"])
	}
	if !strings.Contains(received["text"], "Wheat") {
		t.Fatalf("message text should mention the commodity: %q", received["text"])
	}
}

func TestTelegramNotifierRejectsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err == nil {
		t.Fatal("ok=false must return an error")
	}
}

func TestTelegramNotifierRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testNote()); err == nil {
		t.Fatal("5xx must return an error")
	}
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(testLogger())
	if err := n.Notify(context.Background(), testNote()); err != nil {
		t.Fatalf("log notifier should never fail: %v", err)
	}
}
