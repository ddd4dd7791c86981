package engine

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dmm-flipper/internal/config"
	"dmm-flipper/internal/history"
	"dmm-flipper/internal/wiki"
)

// Snapshot is one completed refresh cycle's full output. Published
// snapshots are never mutated; consumers hold the pointer until the next
// cycle replaces it.
type Snapshot struct {
	Cycle       int64 `json:"Cycle"`
	StartedAt   int64 `json:"StartedAt"`
	CompletedAt int64 `json:"CompletedAt"`
	DurationMS  int64 `json:"DurationMS"`

	CatalogSize  int `json:"CatalogSize"`
	QuoteCount   int `json:"QuoteCount"`
	VolumeCount  int `json:"VolumeCount"`
	TrackedItems int `json:"TrackedItems"` // items with history after the append

	Opportunities    []Opportunity     `json:"Opportunities"`
	StablePicks      []StablePick      `json:"StablePicks"`
	HighTicket       HighTicketReport  `json:"HighTicket"`
	Movers           []Mover           `json:"Movers"`
	Breach           BreachStatus      `json:"Breach"`
	BreachCandidates []BreachCandidate `json:"BreachCandidates"`
}

// Tracker runs refresh cycles against the price feed and publishes the
// most recent completed snapshot. A cycle is transactional: fetch, append
// history, analyze, publish. On any fetch failure the whole cycle is
// abandoned and the previous snapshot stays visible.
type Tracker struct {
	feed  *wiki.Client
	store *history.Store

	mu      sync.RWMutex
	current *Snapshot
	cycles  int64

	group singleflight.Group
}

// NewTracker creates a Tracker over the given feed and history store.
func NewTracker(feed *wiki.Client, store *history.Store) *Tracker {
	return &Tracker{feed: feed, store: store}
}

// Current returns the latest published snapshot, or nil before the first
// completed cycle.
func (t *Tracker) Current() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Store exposes the history store for read-only consumers.
func (t *Tracker) Store() *history.Store {
	return t.store
}

// Refresh runs one cycle. Concurrent callers coalesce onto the in-flight
// cycle and share its snapshot; the first caller's parameters and progress
// callback apply.
func (t *Tracker) Refresh(cfg config.Config, progress func(string)) (*Snapshot, error) {
	v, err, _ := t.group.Do("cycle", func() (interface{}, error) {
		return t.runCycle(cfg, progress)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (t *Tracker) runCycle(cfg config.Config, progress func(string)) (*Snapshot, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()

	progress("Fetching item catalog...")
	items, err := t.feed.CatalogByID()
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	progress("Fetching quotes and volumes...")
	var quotes map[int]wiki.Quote
	var volumes map[int]wiki.VolumeQuote
	var g errgroup.Group
	g.Go(func() error {
		var err error
		quotes, err = t.feed.Latest()
		if err != nil {
			return fmt.Errorf("fetch quotes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		volumes, err = t.feed.HourVolumes()
		if err != nil {
			return fmt.Errorf("fetch volumes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().Unix()

	progress(fmt.Sprintf("Scoring %d quoted items...", len(quotes)))
	opportunities := ScanOpportunities(items, quotes, volumes, OpportunityParams{
		Capital:      cfg.Capital,
		MinMarginPct: cfg.MinMarginPct,
		MaxMarginPct: cfg.MaxMarginPct,
	}, now)

	// Qualified items become this cycle's history samples. The append must
	// finish before any analyzer reads, so the window is never half-updated.
	if len(opportunities) > 0 {
		for _, o := range opportunities {
			t.store.Append(o.ItemID, history.Sample{
				Timestamp: now,
				Buy:       o.Buy,
				Sell:      o.Sell,
				MarginPct: o.MarginPct,
				Volume:    o.TotalVolume,
			})
		}
		if err := t.store.Flush(); err != nil {
			// In-memory state stays authoritative until the next write.
			log.Printf("[HISTORY] write-back failed: %v", err)
		}
	}

	progress("Analyzing stability and movement...")
	stablePicks := ScanStablePicks(t.store, items, quotes, volumes, StablePickParams{
		Capital:         cfg.Capital,
		FilterStale:     cfg.FilterStale,
		FilterLowVolume: cfg.FilterLowVolume,
	}, now)
	highTicket := ScanHighTicket(items, quotes, volumes, cfg.Capital, now)
	movers := ScanMovers(t.store, items, now)

	snap := &Snapshot{
		StartedAt:        start.Unix(),
		CompletedAt:      now,
		DurationMS:       time.Since(start).Milliseconds(),
		CatalogSize:      len(items),
		QuoteCount:       len(quotes),
		VolumeCount:      len(volumes),
		TrackedItems:     t.store.ItemCount(),
		Opportunities:    opportunities,
		StablePicks:      stablePicks,
		HighTicket:       highTicket,
		Movers:           movers,
		Breach:           BreachWindow(time.Unix(now, 0)),
		BreachCandidates: BreachCandidates(items, quotes, now),
	}

	t.mu.Lock()
	t.cycles++
	snap.Cycle = t.cycles
	t.current = snap
	t.mu.Unlock()

	progress(fmt.Sprintf("Found %d opportunities, %d stable picks, %d movers", len(opportunities), len(stablePicks), len(movers)))
	return snap, nil
}

// ScanBreachBoosts measures post-breach margin boosts from each item's
// 5-minute time series. A nil or empty ids slice scans the curated list.
// Items whose series cannot be fetched or never spans a window boundary
// are skipped rather than failing the scan.
func (t *Tracker) ScanBreachBoosts(ids []int, progress func(string)) ([]BreachBoost, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if len(ids) == 0 {
		ids = BoostedItemIDs()
	}

	items, err := t.feed.CatalogByID()
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	progress(fmt.Sprintf("Measuring %d items against the breach schedule...", len(ids)))

	results := make([]BreachBoost, 0, len(ids))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(4)
	for _, id := range ids {
		itemID := id
		g.Go(func() error {
			points, err := t.feed.Timeseries(itemID, "5m")
			if err != nil {
				log.Printf("[BREACH] timeseries for item %d: %v", itemID, err)
				return nil
			}
			boost, ok := MeasureBreachBoost(points)
			if !ok {
				return nil
			}
			boost.ItemID = itemID
			boost.Name = itemName(items, itemID)
			mu.Lock()
			results = append(results, boost)
			mu.Unlock()
			progress(fmt.Sprintf("Measured %s: %+.1f pts", boost.Name, boost.MarginDeltaPts))
			return nil
		})
	}
	g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].MarginDeltaPts > results[j].MarginDeltaPts
	})
	return results, nil
}
