package engine

import (
	"math"
	"testing"

	"dmm-flipper/internal/wiki"
)

func opportunityFixture(now int64) (map[int]wiki.Item, map[int]wiki.Quote, map[int]wiki.VolumeQuote) {
	items := map[int]wiki.Item{
		4151: {ID: 4151, Name: "Abyssal whip", Limit: 8},
	}
	quotes := map[int]wiki.Quote{
		4151: {High: 1000, HighTime: now - 30, Low: 900, LowTime: now - 30},
	}
	volumes := map[int]wiki.VolumeQuote{
		4151: {HighPriceVolume: 30, LowPriceVolume: 20},
	}
	return items, quotes, volumes
}

func TestScanOpportunities_WorkedExample(t *testing.T) {
	now := int64(100000)
	items, quotes, volumes := opportunityFixture(now)
	params := OpportunityParams{Capital: 100000, MinMarginPct: 3, MaxMarginPct: 30}

	results := ScanOpportunities(items, quotes, volumes, params, now)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}

	o := results[0]
	if o.Buy != 900 || o.Sell != 1000 {
		t.Errorf("normalized prices = %d/%d, want 900/1000", o.Buy, o.Sell)
	}
	// margin = 1000-900-10 = 90, pct = 10
	if o.Margin != 90 || o.MarginPct != 10 {
		t.Errorf("margin = %d (%v%%), want 90 (10%%)", o.Margin, o.MarginPct)
	}
	// maxQty = min(100000/1000, limit 8) = 8
	if o.MaxQty != 8 {
		t.Errorf("MaxQty = %d, want 8", o.MaxQty)
	}
	if o.PotentialProfit != 720 {
		t.Errorf("PotentialProfit = %d, want 720", o.PotentialProfit)
	}
	// profit = min(50, 90*8/100) = 7.2; volume = log10(50)*25; fresh = 50
	// aggressive = 0.5*7.2 + 0.3*volume + 0.2*50
	wantVolume := math.Log10(50) * 25
	wantAggressive := 0.5*7.2 + 0.3*wantVolume + 0.2*50
	if math.Abs(o.AggressiveScore-wantAggressive) > 1e-9 {
		t.Errorf("AggressiveScore = %v, want %v", o.AggressiveScore, wantAggressive)
	}
	// flips/hr = min(limit/4=2, vol*0.07=3.5) * fresh 1.0 = 2
	if o.FlipsPerHour != 2 {
		t.Errorf("FlipsPerHour = %v, want 2", o.FlipsPerHour)
	}
	if o.HourlyProfit != 180 {
		t.Errorf("HourlyProfit = %d, want 180", o.HourlyProfit)
	}
}

func TestScanOpportunities_SpreadRatioExcludes(t *testing.T) {
	now := int64(100000)
	items := map[int]wiki.Item{
		1: {ID: 1, Name: "Wide", Limit: 100},
		2: {ID: 2, Name: "Edge", Limit: 100},
	}
	quotes := map[int]wiki.Quote{
		// ratio 250/100 = 2.5: excluded no matter how juicy the margin
		1: {High: 250, HighTime: now, Low: 100, LowTime: now},
		// ratio exactly 2.0 passes
		2: {High: 200, HighTime: now, Low: 100, LowTime: now},
	}
	volumes := map[int]wiki.VolumeQuote{
		1: {HighPriceVolume: 100},
		2: {HighPriceVolume: 100},
	}
	// Margin band wide open so only the spread filter can reject.
	params := OpportunityParams{Capital: 100000, MinMarginPct: 0, MaxMarginPct: 1000}

	results := ScanOpportunities(items, quotes, volumes, params, now)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ItemID != 2 {
		t.Errorf("survivor = item %d, want 2 (ratio 2.0)", results[0].ItemID)
	}
}

func TestScanOpportunities_InvertedQuoteNormalized(t *testing.T) {
	now := int64(100000)
	items := map[int]wiki.Item{7: {ID: 7, Name: "Swapped", Limit: 10}}
	quotes := map[int]wiki.Quote{
		7: {High: 900, HighTime: now, Low: 1000, LowTime: now},
	}
	volumes := map[int]wiki.VolumeQuote{7: {HighPriceVolume: 50}}
	params := OpportunityParams{Capital: 100000, MinMarginPct: 3, MaxMarginPct: 30}

	results := ScanOpportunities(items, quotes, volumes, params, now)
	if len(results) != 1 {
		t.Fatalf("inverted quote dropped, want normalized and kept")
	}
	if results[0].Buy != 900 || results[0].Sell != 1000 {
		t.Errorf("normalized = %d/%d, want 900/1000", results[0].Buy, results[0].Sell)
	}
}

func TestScanOpportunities_HardFilters(t *testing.T) {
	now := int64(100000)
	base := wiki.Quote{High: 1000, HighTime: now - 30, Low: 900, LowTime: now - 30}
	baseVol := wiki.VolumeQuote{HighPriceVolume: 30, LowPriceVolume: 20}

	tests := []struct {
		name    string
		item    wiki.Item
		mutate  func(*wiki.Quote, *wiki.VolumeQuote)
		capital int64
		want    int
	}{
		{"baseline passes", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) {}, 100000, 1},
		{"missing side", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { q.Low = 0 }, 100000, 0},
		{"age 300 kept", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { q.LowTime = now - 300 }, 100000, 1},
		{"age 301 dropped", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { q.LowTime = now - 301 }, 100000, 0},
		{"buy under 10", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { q.High = 14; q.Low = 9 }, 100000, 0},
		{"sell above capital", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) {}, 999, 0},
		{"volume 9 dropped", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { v.HighPriceVolume = 9; v.LowPriceVolume = 0 }, 100000, 0},
		{"volume 10 kept", wiki.Item{ID: 1, Name: "X", Limit: 8}, func(q *wiki.Quote, v *wiki.VolumeQuote) { v.HighPriceVolume = 10; v.LowPriceVolume = 0 }, 100000, 1},
		{"zero trade limit", wiki.Item{ID: 1, Name: "X", Limit: 0}, func(q *wiki.Quote, v *wiki.VolumeQuote) {}, 100000, 0},
	}

	for _, tc := range tests {
		q, v := base, baseVol
		tc.mutate(&q, &v)
		items := map[int]wiki.Item{1: tc.item}
		quotes := map[int]wiki.Quote{1: q}
		volumes := map[int]wiki.VolumeQuote{1: v}
		params := OpportunityParams{Capital: tc.capital, MinMarginPct: 3, MaxMarginPct: 30}

		results := ScanOpportunities(items, quotes, volumes, params, now)
		if len(results) != tc.want {
			t.Errorf("%s: len(results) = %d, want %d", tc.name, len(results), tc.want)
		}
	}
}

func TestScanOpportunities_MarginBand(t *testing.T) {
	now := int64(100000)
	items := map[int]wiki.Item{
		1: {ID: 1, Name: "Thin", Limit: 100},
		2: {ID: 2, Name: "Fat", Limit: 100},
		3: {ID: 3, Name: "Fine", Limit: 100},
	}
	quotes := map[int]wiki.Quote{
		// margin = 1030-1000-10 = 20 -> 2.0%, under min 3
		1: {High: 1030, HighTime: now, Low: 1000, LowTime: now},
		// margin = 145-100-1 = 44 -> 44%, over max 30
		2: {High: 145, HighTime: now, Low: 100, LowTime: now},
		// margin = 1100-1000-11 = 89 -> 8.9%
		3: {High: 1100, HighTime: now, Low: 1000, LowTime: now},
	}
	volumes := map[int]wiki.VolumeQuote{
		1: {HighPriceVolume: 100},
		2: {HighPriceVolume: 100},
		3: {HighPriceVolume: 100},
	}
	params := OpportunityParams{Capital: 100000, MinMarginPct: 3, MaxMarginPct: 30}

	results := ScanOpportunities(items, quotes, volumes, params, now)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ItemID != 3 {
		t.Errorf("survivor = item %d, want 3", results[0].ItemID)
	}
}

func TestScanOpportunities_UncataloguedItemSkipped(t *testing.T) {
	now := int64(100000)
	_, quotes, volumes := opportunityFixture(now)
	params := OpportunityParams{Capital: 100000, MinMarginPct: 3, MaxMarginPct: 30}

	results := ScanOpportunities(map[int]wiki.Item{}, quotes, volumes, params, now)
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0 for unknown item", len(results))
	}
}

func TestScanOpportunities_RankedByAggressiveScore(t *testing.T) {
	now := int64(100000)
	items := map[int]wiki.Item{
		1: {ID: 1, Name: "Small", Limit: 100},
		2: {ID: 2, Name: "Big", Limit: 100},
	}
	quotes := map[int]wiki.Quote{
		1: {High: 1050, HighTime: now, Low: 1000, LowTime: now},
		2: {High: 1100, HighTime: now, Low: 1000, LowTime: now},
	}
	volumes := map[int]wiki.VolumeQuote{
		1: {HighPriceVolume: 100},
		2: {HighPriceVolume: 5000},
	}
	params := OpportunityParams{Capital: 100000, MinMarginPct: 0, MaxMarginPct: 1000}

	results := ScanOpportunities(items, quotes, volumes, params, now)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ItemID != 2 {
		t.Errorf("top result = item %d, want 2 (bigger margin and volume)", results[0].ItemID)
	}
	if results[0].AggressiveScore < results[1].AggressiveScore {
		t.Error("results not sorted by descending aggressive score")
	}
}
