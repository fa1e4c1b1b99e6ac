package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mandiwatch/internal/alerts"
	"mandiwatch/internal/cache"
	"mandiwatch/internal/config"
	"mandiwatch/internal/feed"
	"mandiwatch/internal/history"
)

type stubFetcher struct {
	snap feed.Snapshot
}

func (s stubFetcher) Fetch(context.Context) (feed.Snapshot, error) {
	return s.snap, nil
}

func newTestServer(t *testing.T, fetcher feed.Fetcher) (*Server, *cache.HistoryCache) {
	t.Helper()
	historyCache := cache.New(nil, cache.Options{}, zerolog.Nop())
	engine := history.NewEngine(historyCache)
	alertStore := alerts.NewFileStore(filepath.Join(t.TempDir(), "alerts.json"))

	srv := New(config.ServerConfig{Addr: ":0"}, Options{
		Fetcher:    fetcher,
		Cache:      historyCache,
		Engine:     engine,
		AlertStore: alertStore,
	}, zerolog.Nop())
	return srv, historyCache
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestMarketPricesIngestsAndLabelsSource(t *testing.T) {
	snap := feed.FallbackSnapshot(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	srv, historyCache := newTestServer(t, stubFetcher{snap: snap})

	rec := doRequest(t, srv, http.MethodGet, "/api/market-prices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Success bool       `json:"success"`
		Source  string     `json:"source"`
		Count   int        `json:"count"`
		Data    []feed.Row `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Source != feed.SourceFallback || resp.Count != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if historyCache.Len() != 5 {
		t.Fatalf("cache entries = %d, want 5", historyCache.Len())
	}
}

func TestCommoditiesAndSummaryEndpoints(t *testing.T) {
	snap := feed.FallbackSnapshot(time.Now().UTC())
	srv, historyCache := newTestServer(t, stubFetcher{snap: snap})
	historyCache.Ingest(context.Background(), snap.Observations())

	rec := doRequest(t, srv, http.MethodGet, "/api/commodities", "")
	var commodities struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &commodities); err != nil {
		t.Fatalf("decode commodities: %v", err)
	}
	if len(commodities.Data) != 5 {
		t.Fatalf("commodities = %v", commodities.Data)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/summary", "")
	var summary struct {
		Success bool            `json:"success"`
		Data    history.Summary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	want := history.Summary{TotalEntries: 5, Commodities: 5, Locations: 5}
	if summary.Data != want {
		t.Fatalf("summary = %+v, want %+v", summary.Data, want)
	}
}

func TestChartHistoryRequiresCommodity(t *testing.T) {
	srv, _ := newTestServer(t, stubFetcher{})
	rec := doRequest(t, srv, http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChartHistoryServesCachedSeries(t *testing.T) {
	snap := feed.FallbackSnapshot(time.Now().UTC())
	srv, historyCache := newTestServer(t, stubFetcher{snap: snap})
	historyCache.Ingest(context.Background(), snap.Observations())

	rec := doRequest(t, srv, http.MethodGet, "/api/history?commodity=Wheat&location=Delhi&range=7d", "")
	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Data    struct {
			Daily []history.DayPoint `json:"daily"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Count != 1 || len(resp.Data.Daily) != 1 {
		t.Fatalf("unexpected chart response: %+v", resp)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t, stubFetcher{})

	rec := doRequest(t, srv, http.MethodPost, "/api/alerts", `{"commodity":"Wheat","targetPrice":2400,"condition":"above"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data alerts.Alert `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts/"+created.Data.ID+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/alerts/"+created.Data.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/alerts/"+created.Data.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts", `{"commodity":"Wheat","targetPrice":2400,"condition":"sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid condition status = %d, want 400", rec.Code)
	}
}

func TestCheckWithoutDatabaseIsSoftFailure(t *testing.T) {
	srv, _ := newTestServer(t, stubFetcher{})
	rec := doRequest(t, srv, http.MethodPost, "/api/alerts/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 soft failure", rec.Code)
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Fatal("check without database must report success=false")
	}
}
