package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dmm-flipper/internal/config"
	"dmm-flipper/internal/db"
	"dmm-flipper/internal/engine"
	"dmm-flipper/internal/history"
	"dmm-flipper/internal/wiki"
)

// GET /api/status is not asserted in detail here because it probes the
// live feed; the refresh test covers the wired-up path end to end.

// newFeedStub serves a four-item catalog where only the Shark trades:
// 900/1000 with healthy volume, a clean opportunity under the default
// config.
func newFeedStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Unix()
		switch r.URL.Path {
		case "/mapping":
			w.Write([]byte(`[{"id":385,"name":"Shark","limit":10000},{"id":11235,"name":"Twisted bow","limit":8},{"id":13441,"name":"Anglerfish","limit":10000},{"id":4151,"name":"Abyssal whip","limit":8}]`))
		case "/latest":
			fmt.Fprintf(w, `{"data":{"385":{"high":1000,"highTime":%d,"low":900,"lowTime":%d}}}`, now-30, now-30)
		case "/1h":
			w.Write([]byte(`{"data":{"385":{"avgHighPrice":990,"highPriceVolume":30,"avgLowPrice":905,"lowPriceVolume":20}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestServer(t *testing.T, feedURL string, database *db.DB) *Server {
	t.Helper()
	feed := wiki.NewClient("")
	if feedURL != "" {
		feed.SetBaseURL(feedURL)
	}
	tracker := engine.NewTracker(feed, history.NewStore(nil))
	return NewServer(config.Default(), feed, tracker, database, "test")
}

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	t.Chdir(t.TempDir())
	d, err := db.Open()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestHandleGetConfig_ReturnsDefaults(t *testing.T) {
	srv := newTestServer(t, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.Capital != 50000 || out.MaxResults != 50 || !out.AutoRefresh {
		t.Errorf("config = %+v, want defaults", out)
	}
}

func TestHandleSetConfig_PatchClampsValues(t *testing.T) {
	srv := newTestServer(t, "", nil)

	body := `{
		"capital": 250000,
		"refresh_interval_seconds": 5,
		"min_margin_pct": 8,
		"max_margin_pct": 2,
		"max_results": 9999,
		"filter_stale": false,
		"unknown_key": true
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}

	if out.Capital != 250000 {
		t.Errorf("Capital = %d, want 250000", out.Capital)
	}
	if out.RefreshIntervalSeconds != minRefreshInterval {
		t.Errorf("RefreshIntervalSeconds = %d, want clamped to %d", out.RefreshIntervalSeconds, minRefreshInterval)
	}
	// max below min gets raised to min.
	if out.MinMarginPct != 8 || out.MaxMarginPct != 8 {
		t.Errorf("margin band = %v-%v, want 8-8", out.MinMarginPct, out.MaxMarginPct)
	}
	if out.MaxResults != maxResultsCap {
		t.Errorf("MaxResults = %d, want capped at %d", out.MaxResults, maxResultsCap)
	}
	if out.FilterStale {
		t.Error("FilterStale should be switched off")
	}

	// The patch sticks for later reads.
	req = httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	var again config.Config
	if err := json.NewDecoder(rec.Body).Decode(&again); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if again.Capital != 250000 || again.MinMarginPct != 8 {
		t.Errorf("config after patch = %+v", again)
	}
}

func TestHandleSetConfig_RejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/config", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListEndpoints_Return503BeforeFirstCycle(t *testing.T) {
	srv := newTestServer(t, "", nil)

	for _, path := range []string{"/api/opportunities", "/api/stable", "/api/highticket", "/api/movers"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status = %d, want 503", path, rec.Code)
		}
		var out map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("GET %s decode: %v", path, err)
		}
		if out["error"] == "" {
			t.Errorf("GET %s returned no error message", path)
		}
	}
}

func TestHandleBreach_AvailableWithoutCycle(t *testing.T) {
	srv := newTestServer(t, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/breach", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/breach status = %d, want 200", rec.Code)
	}
	var out struct {
		Status     engine.BreachStatus      `json:"status"`
		Candidates []engine.BreachCandidate `json:"candidates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode breach: %v", err)
	}
	switch out.Status.NextBreachHour {
	case 2, 10, 19:
	default:
		t.Errorf("NextBreachHour = %d, want a scheduled hour", out.Status.NextBreachHour)
	}
	if out.Candidates == nil {
		t.Error("candidates should be an empty list, not null")
	}
}

func TestHandleRefresh_StreamsAndArchives(t *testing.T) {
	feedSrv := newFeedStub(t)
	defer feedSrv.Close()
	database := openTestDB(t)
	srv := newTestServer(t, feedSrv.URL, database)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/refresh status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("stream has %d lines, want progress plus result", len(lines))
	}

	var first struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first.Type != "progress" || first.Message != "Fetching item catalog..." {
		t.Errorf("first line = %+v, want catalog progress", first)
	}

	var final struct {
		Type    string          `json:"type"`
		CycleID int64           `json:"cycle_id"`
		Data    engine.Snapshot `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &final); err != nil {
		t.Fatalf("decode final line: %v", err)
	}
	if final.Type != "result" {
		t.Fatalf("final line type = %q, want result", final.Type)
	}
	if final.CycleID < 1 {
		t.Errorf("cycle_id = %d, want >= 1", final.CycleID)
	}
	if final.Data.Cycle != 1 || len(final.Data.Opportunities) != 1 {
		t.Errorf("snapshot = cycle %d with %d opportunities, want 1/1",
			final.Data.Cycle, len(final.Data.Opportunities))
	}

	// The snapshot is now served by the list endpoints.
	req = httptest.NewRequest(http.MethodGet, "/api/opportunities", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/opportunities after refresh status = %d, want 200", rec.Code)
	}
	var list struct {
		Cycle int64                `json:"cycle"`
		Count int                  `json:"count"`
		Data  []engine.Opportunity `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode opportunities: %v", err)
	}
	if list.Cycle != 1 || list.Count != 1 || len(list.Data) != 1 || list.Data[0].Name != "Shark" {
		t.Errorf("opportunities = %+v", list)
	}

	// The cycle summary row was written before the stream closed.
	cycles := database.RecentCycles(5)
	if len(cycles) != 1 {
		t.Fatalf("RecentCycles len = %d, want 1", len(cycles))
	}
	if cycles[0].ID != final.CycleID || cycles[0].OpportunityCount != 1 {
		t.Errorf("archived cycle = %+v", cycles[0])
	}
}

func TestHandleItemSearch_PrefixBeforeContains(t *testing.T) {
	feedSrv := newFeedStub(t)
	defer feedSrv.Close()
	srv := newTestServer(t, feedSrv.URL, nil)

	search := func(q string) []wiki.Item {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/api/items/search?q="+q, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /api/items/search?q=%s status = %d, want 200", q, rec.Code)
		}
		var out map[string][]wiki.Item
		if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
			t.Fatalf("decode search: %v", err)
		}
		return out["items"]
	}

	if got := search("ang"); len(got) != 1 || got[0].Name != "Anglerfish" {
		t.Errorf("search(ang) = %+v, want Anglerfish", got)
	}
	if got := search("whip"); len(got) != 1 || got[0].Name != "Abyssal whip" {
		t.Errorf("search(whip) = %+v, want Abyssal whip via substring", got)
	}
	// Prefix matches rank ahead of substring matches.
	if got := search("s"); len(got) == 0 || got[0].Name != "Shark" {
		t.Errorf("search(s) = %+v, want Shark first", got)
	}
	if got := search(""); len(got) != 0 {
		t.Errorf("search(empty) = %+v, want no items", got)
	}
}

func TestHandleItemHistory(t *testing.T) {
	srv := newTestServer(t, "", nil)

	now := time.Now().Unix()
	for i, ts := range []int64{now - 120, now - 60, now} {
		srv.tracker.Store().Append(385, history.Sample{
			Timestamp: ts,
			Buy:       900 + int64(i),
			Sell:      1000,
			MarginPct: 10,
			Volume:    50,
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/items/385/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		ItemID    int                      `json:"item_id"`
		Count     int                      `json:"count"`
		Samples   []history.Sample         `json:"samples"`
		Stability *engine.StabilityMetrics `json:"stability"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if out.ItemID != 385 || out.Count != 3 || len(out.Samples) != 3 {
		t.Errorf("history = item %d count %d samples %d, want 385/3/3", out.ItemID, out.Count, len(out.Samples))
	}
	if out.Stability == nil {
		t.Fatal("stability metrics missing")
	}
	if out.Stability.StabilityScore != 73 {
		t.Errorf("StabilityScore = %v, want 73", out.Stability.StabilityScore)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/items/999/history", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("untracked item status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/items/abc/history", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad item id status = %d, want 400", rec.Code)
	}
}

func TestHandleGetCycleResults(t *testing.T) {
	database := openTestDB(t)
	srv := newTestServer(t, "", database)

	snap := &engine.Snapshot{
		Cycle:       1,
		CompletedAt: time.Now().Unix(),
		DurationMS:  120,
		Opportunities: []engine.Opportunity{
			{ItemID: 385, Name: "Shark", Buy: 900, Sell: 1000, Margin: 90, MarginPct: 10},
		},
	}
	id := database.InsertCycle(snap)
	database.ArchiveResults(id, snap)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/cycles/%d/results", id), nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		Cycle         *db.CycleRecord      `json:"cycle"`
		Opportunities []engine.Opportunity `json:"opportunities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if out.Cycle == nil || out.Cycle.ID != id {
		t.Errorf("cycle record = %+v, want id %d", out.Cycle, id)
	}
	if len(out.Opportunities) != 1 || out.Opportunities[0].Name != "Shark" {
		t.Errorf("opportunities = %+v", out.Opportunities)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cycles/99999/results", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown cycle status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/cycles/abc/results", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad cycle id status = %d, want 400", rec.Code)
	}
}

func TestCORSMiddleware_PreflightAndHeaders(t *testing.T) {
	srv := newTestServer(t, "", nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 204 {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
