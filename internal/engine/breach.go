package engine

import (
	"fmt"
	"sort"
	"time"

	"dmm-flipper/internal/wiki"
)

// The market repopulates at fixed UTC hours each day; margins on consumables
// stay elevated for a while afterwards as players restock.
var breachHoursUTC = []int{2, 10, 19}

const postBreachWindow = 2 * time.Hour

// breachBoosts maps consumable item ids to the average margin boost
// (percentage points) observed in the window after a breach.
var breachBoosts = map[int]float64{
	385:   18, // Shark
	391:   22, // Manta ray
	7946:  9,  // Monkfish
	13441: 25, // Anglerfish
	2434:  15, // Prayer potion(4)
	3024:  21, // Super restore(4)
	6685:  24, // Saradomin brew(4)
	12695: 16, // Super combat potion(4)
	2444:  11, // Ranging potion(4)
	560:   8,  // Death rune
	565:   12, // Blood rune
	9075:  6,  // Astral rune
}

// BreachStatus describes where "now" sits relative to the breach schedule.
type BreachStatus struct {
	InPostBreach      bool   `json:"InPostBreach"`
	CurrentBreachHour int    `json:"CurrentBreachHour"` // -1 outside a window
	NextBreachHour    int    `json:"NextBreachHour"`
	NextBreachAt      int64  `json:"NextBreachAt"` // epoch seconds
	SecondsUntilNext  int64  `json:"SecondsUntilNext"`
	Countdown         string `json:"Countdown"`
}

// BreachCandidate is a curated consumable with its expected post-breach
// boost, priced from the live quote.
type BreachCandidate struct {
	ItemID     int     `json:"ItemID"`
	Name       string  `json:"Name"`
	BoostPct   float64 `json:"BoostPct"`
	Buy        int64   `json:"Buy"`
	Sell       int64   `json:"Sell"`
	Margin     int64   `json:"Margin"`
	MarginPct  float64 `json:"MarginPct"`
	AgeSeconds int64   `json:"AgeSeconds"`
}

// BreachBoost is the measured (not curated) boost for one item, derived
// from its price time series.
type BreachBoost struct {
	ItemID           int     `json:"ItemID"`
	Name             string  `json:"Name"`
	InsideSamples    int     `json:"InsideSamples"`
	OutsideSamples   int     `json:"OutsideSamples"`
	InsideMarginPct  float64 `json:"InsideMarginPct"`
	OutsideMarginPct float64 `json:"OutsideMarginPct"`
	MarginDeltaPts   float64 `json:"MarginDeltaPts"`
	InsideAvgBuy     float64 `json:"InsideAvgBuy"`
	OutsideAvgBuy    float64 `json:"OutsideAvgBuy"`
	PriceDeltaPct    float64 `json:"PriceDeltaPct"`
}

// BreachWindow locates the given instant on the daily breach schedule.
func BreachWindow(now time.Time) BreachStatus {
	utc := now.UTC()
	status := BreachStatus{CurrentBreachHour: -1}

	if hour, ok := currentBreachHour(utc); ok {
		status.InPostBreach = true
		status.CurrentBreachHour = hour
	}

	next := nextBreachStart(utc)
	until := next.Sub(utc)
	status.NextBreachHour = next.Hour()
	status.NextBreachAt = next.Unix()
	status.SecondsUntilNext = int64(until.Seconds())
	status.Countdown = formatCountdown(until)
	return status
}

// currentBreachHour returns the breach hour whose post-window contains t,
// if any. Windows never overlap; the schedule spaces them hours apart.
func currentBreachHour(t time.Time) (int, bool) {
	for _, h := range breachHoursUTC {
		start := time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, time.UTC)
		if !t.Before(start) && t.Sub(start) < postBreachWindow {
			return h, true
		}
	}
	return 0, false
}

// nextBreachStart finds the first scheduled breach after t, rolling over to
// the next day's first hour when today's are all past.
func nextBreachStart(t time.Time) time.Time {
	for _, h := range breachHoursUTC {
		start := time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, time.UTC)
		if start.After(t) {
			return start
		}
	}
	first := breachHoursUTC[0]
	return time.Date(t.Year(), t.Month(), t.Day(), first, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func formatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// BreachCandidates prices the curated boost list against live quotes.
// Curated items with no usable quote this cycle are left out; the list
// answers "what could I stock right now", not "what exists".
func BreachCandidates(items map[int]wiki.Item, quotes map[int]wiki.Quote, now int64) []BreachCandidate {
	var candidates []BreachCandidate
	for itemID, boost := range breachBoosts {
		q, ok := quotes[itemID]
		if !ok || q.High <= 0 || q.Low <= 0 {
			continue
		}
		buy, sell := NormalizeQuote(q)
		margin, marginPct := FlipMargin(buy, sell)
		candidates = append(candidates, BreachCandidate{
			ItemID:     itemID,
			Name:       itemName(items, itemID),
			BoostPct:   boost,
			Buy:        buy,
			Sell:       sell,
			Margin:     margin,
			MarginPct:  sanitizeFloat(marginPct),
			AgeSeconds: quoteAge(q, now),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].BoostPct > candidates[j].BoostPct
	})
	return candidates
}

// MeasureBreachBoost splits an item's price series into buckets inside and
// outside post-breach windows and compares their average margins and buy
// prices. It reports false when either bucket is empty; a series that
// never crosses a window boundary proves nothing.
func MeasureBreachBoost(points []wiki.TimeseriesPoint) (BreachBoost, bool) {
	var b BreachBoost
	var insideMargin, outsideMargin, insideBuy, outsideBuy float64

	for _, pt := range points {
		if pt.AvgHighPrice <= 0 || pt.AvgLowPrice <= 0 {
			continue
		}
		buy, sell := pt.AvgLowPrice, pt.AvgHighPrice
		if buy > sell {
			buy, sell = sell, buy
		}
		_, marginPct := FlipMargin(buy, sell)

		if _, ok := currentBreachHour(time.Unix(pt.Timestamp, 0).UTC()); ok {
			b.InsideSamples++
			insideMargin += marginPct
			insideBuy += float64(buy)
		} else {
			b.OutsideSamples++
			outsideMargin += marginPct
			outsideBuy += float64(buy)
		}
	}

	if b.InsideSamples == 0 || b.OutsideSamples == 0 {
		return b, false
	}

	b.InsideMarginPct = sanitizeFloat(insideMargin / float64(b.InsideSamples))
	b.OutsideMarginPct = sanitizeFloat(outsideMargin / float64(b.OutsideSamples))
	b.MarginDeltaPts = b.InsideMarginPct - b.OutsideMarginPct
	b.InsideAvgBuy = insideBuy / float64(b.InsideSamples)
	b.OutsideAvgBuy = outsideBuy / float64(b.OutsideSamples)
	if b.OutsideAvgBuy > 0 {
		b.PriceDeltaPct = sanitizeFloat((b.InsideAvgBuy - b.OutsideAvgBuy) / b.OutsideAvgBuy * 100)
	}
	return b, true
}

// BoostedItemIDs returns the curated breach list's item ids, ascending.
func BoostedItemIDs() []int {
	ids := make([]int, 0, len(breachBoosts))
	for id := range breachBoosts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
