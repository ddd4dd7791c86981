package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"dmm-flipper/internal/config"
	"dmm-flipper/internal/db"
	"dmm-flipper/internal/engine"
	"dmm-flipper/internal/wiki"
)

const (
	// minRefreshInterval is the floor for the auto-refresh period. The
	// feed updates roughly once a minute, so hammering it buys nothing.
	minRefreshInterval = 15

	// maxResultsCap bounds how many rows a list endpoint may be asked
	// to return.
	maxResultsCap = 500

	maxSearchResults = 15
)

// Server exposes the tracker, configuration and cycle archive over a
// JSON HTTP API. List endpoints serve the tracker's published snapshot;
// POST /api/refresh and POST /api/breach/scan stream NDJSON progress.
type Server struct {
	cfg     *config.Config
	feed    *wiki.Client
	tracker *engine.Tracker
	db      *db.DB
	version string
	started time.Time

	mu sync.RWMutex // guards cfg
}

func NewServer(cfg *config.Config, feed *wiki.Client, tracker *engine.Tracker, database *db.DB, version string) *Server {
	return &Server{
		cfg:     cfg,
		feed:    feed,
		tracker: tracker,
		db:      database,
		version: version,
		started: time.Now(),
	}
}

// Config returns a copy of the live configuration.
func (s *Server) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// RunRefresh runs one tracker cycle with the current configuration and
// archives the published snapshot. Concurrent calls share a single cycle.
// The result inserts run in the background; the cycle row is written
// synchronously so the ID can be reported to the caller.
func (s *Server) RunRefresh(progress func(string)) (*engine.Snapshot, int64, error) {
	snap, err := s.tracker.Refresh(s.Config(), progress)
	if err != nil {
		return nil, 0, err
	}
	var cycleID int64
	if s.db != nil {
		cycleID = s.db.InsertCycle(snap)
		go s.db.ArchiveResults(cycleID, snap)
	}
	return snap, cycleID, nil
}

// Handler returns the HTTP handler with all API routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)

	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/opportunities", s.handleOpportunities)
	mux.HandleFunc("GET /api/stable", s.handleStable)
	mux.HandleFunc("GET /api/highticket", s.handleHighTicket)
	mux.HandleFunc("GET /api/movers", s.handleMovers)

	mux.HandleFunc("GET /api/breach", s.handleBreach)
	mux.HandleFunc("POST /api/breach/scan", s.handleBreachScan)

	mux.HandleFunc("GET /api/items/search", s.handleItemSearch)
	mux.HandleFunc("GET /api/items/{itemID}/history", s.handleItemHistory)

	mux.HandleFunc("GET /api/cycles", s.handleGetCycles)
	mux.HandleFunc("GET /api/cycles/{id}/results", s.handleGetCycleResults)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// --- Status & Config ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config()

	status := map[string]interface{}{
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"feed_ok":        s.feed.HealthCheck(),
		"breach":         engine.BreachWindow(time.Now().UTC()),
		"tracked_items":  s.tracker.Store().ItemCount(),
		"capital":        cfg.Capital,
		"capital_text":   humanize.Comma(cfg.Capital),
		"auto_refresh":   cfg.AutoRefresh,
	}
	if _, at := s.feed.HealthStatus(); !at.IsZero() {
		status["feed_last_ok"] = at.Unix()
	}
	if snap := s.tracker.Current(); snap != nil {
		status["cycle"] = snap.Cycle
		status["last_cycle_at"] = snap.CompletedAt
		status["last_cycle_ms"] = snap.DurationMS
		status["catalog_size"] = snap.CatalogSize
		status["opportunities"] = len(snap.Opportunities)
		status["stable_picks"] = len(snap.StablePicks)
		status["movers"] = len(snap.Movers)
		status["highticket_flips"] = len(snap.HighTicket.Flips)
	}

	writeJSON(w, status)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Config())
}

// handleSetConfig applies a partial update. Unknown keys are ignored and
// out-of-range values are dropped or clamped, so a stale client can never
// wedge the tracker with a nonsense configuration.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, 400, "invalid JSON body")
		return
	}

	s.mu.Lock()
	for key, raw := range patch {
		switch key {
		case "capital":
			var v int64
			if err := json.Unmarshal(raw, &v); err == nil && v >= 0 {
				s.cfg.Capital = v
			}
		case "min_margin_pct":
			var v float64
			if err := json.Unmarshal(raw, &v); err == nil && v >= 0 && v <= 100 {
				s.cfg.MinMarginPct = v
			}
		case "max_margin_pct":
			var v float64
			if err := json.Unmarshal(raw, &v); err == nil && v >= 0 && v <= 1000 {
				s.cfg.MaxMarginPct = v
			}
		case "auto_refresh":
			var v bool
			if err := json.Unmarshal(raw, &v); err == nil {
				s.cfg.AutoRefresh = v
			}
		case "refresh_interval_seconds":
			var v int
			if err := json.Unmarshal(raw, &v); err == nil && v > 0 {
				if v < minRefreshInterval {
					v = minRefreshInterval
				}
				s.cfg.RefreshIntervalSeconds = v
			}
		case "filter_stale":
			var v bool
			if err := json.Unmarshal(raw, &v); err == nil {
				s.cfg.FilterStale = v
			}
		case "filter_low_volume":
			var v bool
			if err := json.Unmarshal(raw, &v); err == nil {
				s.cfg.FilterLowVolume = v
			}
		case "max_results":
			var v int
			if err := json.Unmarshal(raw, &v); err == nil && v > 0 {
				if v > maxResultsCap {
					v = maxResultsCap
				}
				s.cfg.MaxResults = v
			}
		}
	}
	if s.cfg.MaxMarginPct < s.cfg.MinMarginPct {
		s.cfg.MaxMarginPct = s.cfg.MinMarginPct
	}
	cfg := *s.cfg
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveConfig(&cfg); err != nil {
			log.Printf("[API] save config: %v", err)
		}
	}

	writeJSON(w, cfg)
}

// --- Refresh (NDJSON stream) ---

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	cfg := s.Config()
	log.Printf("[API] Refresh starting: capital=%s margin=%.1f-%.1f%%",
		humanize.Comma(cfg.Capital), cfg.MinMarginPct, cfg.MaxMarginPct)

	progress := func(msg string) {
		line, _ := json.Marshal(map[string]string{"type": "progress", "message": msg})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	snap, cycleID, err := s.RunRefresh(progress)
	if err != nil {
		log.Printf("[API] Refresh failed: %v", err)
		line, _ := json.Marshal(map[string]string{"type": "error", "message": err.Error()})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
		return
	}

	final, _ := json.Marshal(map[string]interface{}{
		"type":     "result",
		"cycle_id": cycleID,
		"data":     snap,
	})
	fmt.Fprintf(w, "%s\n", final)
	flusher.Flush()
}

// --- Snapshot lists ---

// currentSnapshot writes a 503 and returns nil when no cycle has
// completed yet.
func (s *Server) currentSnapshot(w http.ResponseWriter) *engine.Snapshot {
	snap := s.tracker.Current()
	if snap == nil {
		writeError(w, 503, "no refresh cycle has completed yet")
		return nil
	}
	return snap
}

func (s *Server) maxResults() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg.MaxResults <= 0 {
		return config.Default().MaxResults
	}
	return s.cfg.MaxResults
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	list := snap.Opportunities
	if n := s.maxResults(); len(list) > n {
		list = list[:n]
	}
	writeJSON(w, map[string]interface{}{
		"cycle":      snap.Cycle,
		"updated_at": snap.CompletedAt,
		"count":      len(snap.Opportunities),
		"data":       list,
	})
}

func (s *Server) handleStable(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	list := snap.StablePicks
	if n := s.maxResults(); len(list) > n {
		list = list[:n]
	}
	writeJSON(w, map[string]interface{}{
		"cycle":      snap.Cycle,
		"updated_at": snap.CompletedAt,
		"count":      len(snap.StablePicks),
		"data":       list,
	})
}

func (s *Server) handleHighTicket(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	report := snap.HighTicket
	n := s.maxResults()
	if len(report.Flips) > n {
		report.Flips = report.Flips[:n]
	}
	if len(report.Rejected) > n {
		report.Rejected = report.Rejected[:n]
	}
	writeJSON(w, map[string]interface{}{
		"cycle":      snap.Cycle,
		"updated_at": snap.CompletedAt,
		"report":     report,
	})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot(w)
	if snap == nil {
		return
	}
	list := snap.Movers
	if n := s.maxResults(); len(list) > n {
		list = list[:n]
	}
	writeJSON(w, map[string]interface{}{
		"cycle":      snap.Cycle,
		"updated_at": snap.CompletedAt,
		"count":      len(snap.Movers),
		"data":       list,
	})
}

// --- Breach ---

// handleBreach reports the live window state. Candidates come from the
// last snapshot when one exists; the window itself is pure clock math and
// never returns 503.
func (s *Server) handleBreach(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":     engine.BreachWindow(time.Now().UTC()),
		"candidates": []engine.BreachCandidate{},
	}
	if snap := s.tracker.Current(); snap != nil && snap.BreachCandidates != nil {
		resp["candidates"] = snap.BreachCandidates
	}
	writeJSON(w, resp)
}

func (s *Server) handleBreachScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []int `json:"item_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, 400, "invalid JSON body")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, 500, "streaming not supported")
		return
	}

	if len(req.ItemIDs) == 0 {
		log.Printf("[API] Breach scan starting: curated list")
	} else {
		log.Printf("[API] Breach scan starting: %d item(s)", len(req.ItemIDs))
	}

	// Timeseries fetches run concurrently, so progress writes need a lock.
	var wmu sync.Mutex
	progress := func(msg string) {
		wmu.Lock()
		defer wmu.Unlock()
		line, _ := json.Marshal(map[string]string{"type": "progress", "message": msg})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
	}

	boosts, err := s.tracker.ScanBreachBoosts(req.ItemIDs, progress)
	if err != nil {
		log.Printf("[API] Breach scan failed: %v", err)
		line, _ := json.Marshal(map[string]string{"type": "error", "message": err.Error()})
		fmt.Fprintf(w, "%s\n", line)
		flusher.Flush()
		return
	}

	final, _ := json.Marshal(map[string]interface{}{
		"type":  "result",
		"data":  boosts,
		"count": len(boosts),
	})
	fmt.Fprintf(w, "%s\n", final)
	flusher.Flush()
}

// --- Item lookup ---

func (s *Server) handleItemSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if q == "" {
		writeJSON(w, map[string][]wiki.Item{"items": {}})
		return
	}

	catalog, err := s.feed.Catalog()
	if err != nil {
		log.Printf("[API] item search catalog: %v", err)
		writeError(w, 502, "failed to fetch item catalog")
		return
	}

	var prefix, contains []wiki.Item
	for _, it := range catalog {
		lower := strings.ToLower(it.Name)
		if strings.HasPrefix(lower, q) {
			prefix = append(prefix, it)
		} else if strings.Contains(lower, q) {
			contains = append(contains, it)
		}
	}

	result := append(prefix, contains...)
	if len(result) > maxSearchResults {
		result = result[:maxSearchResults]
	}

	writeJSON(w, map[string][]wiki.Item{"items": result})
}

func (s *Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("itemID"))
	if err != nil || id <= 0 {
		writeError(w, 400, "invalid item id")
		return
	}

	store := s.tracker.Store()
	samples := store.Samples(id)
	if len(samples) == 0 {
		writeError(w, 404, "no tracked history for item")
		return
	}

	resp := map[string]interface{}{
		"item_id": id,
		"count":   len(samples),
		"samples": samples,
	}
	if metrics, ok := engine.AnalyzeStability(store, id, time.Now().Unix()); ok {
		resp["stability"] = metrics
	}

	writeJSON(w, resp)
}

// --- Cycle archive ---

func (s *Server) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	writeJSON(w, s.db.RecentCycles(limit))
}

func (s *Server) handleGetCycleResults(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, 400, "invalid cycle id")
		return
	}

	rec := s.db.CycleByID(id)
	if rec == nil {
		writeError(w, 404, "cycle not found")
		return
	}

	writeJSON(w, map[string]interface{}{
		"cycle":         rec,
		"opportunities": s.db.GetOpportunityResults(id),
		"movers":        s.db.GetMoverResults(id),
		"highticket":    s.db.GetHighTicketResults(id),
	})
}
