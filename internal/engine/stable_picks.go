package engine

import (
	"log"
	"sort"

	"dmm-flipper/internal/history"
	"dmm-flipper/internal/wiki"
)

// Stable-pick qualification bounds.
const (
	minStabilityScore = 20
	stalePickAge      = 600 // seconds; applied only when FilterStale is on
	minPickVolume     = 5   // units/hr; applied only when FilterLowVolume is on
	missingQuoteAge   = 9999
)

// StablePickParams holds the operator inputs for the stable-pick pass.
type StablePickParams struct {
	Capital         int64
	FilterStale     bool
	FilterLowVolume bool
}

// ScanStablePicks walks every item with history, keeps those whose margin
// has been consistent, and re-prices them from the live quote. Historical
// averages qualify an item; the live market decides what it is worth now.
func ScanStablePicks(store *history.Store, items map[int]wiki.Item, quotes map[int]wiki.Quote, volumes map[int]wiki.VolumeQuote, params StablePickParams, now int64) []StablePick {
	var picks []StablePick
	var dropScore, dropQuote, dropCapital, dropQty, dropStale, dropVolume int

	for _, itemID := range store.ItemIDs() {
		item, ok := items[itemID]
		if !ok {
			continue
		}

		m, ok := AnalyzeStability(store, itemID, now)
		if !ok || m.SampleCount < 3 || m.StabilityScore < minStabilityScore {
			dropScore++
			continue
		}

		q, ok := quotes[itemID]
		if !ok || q.High <= 0 || q.Low <= 0 {
			dropQuote++
			continue
		}
		buy, sell := NormalizeQuote(q)

		age := int64(missingQuoteAge)
		if q.HighTime > 0 && q.LowTime > 0 {
			age = quoteAge(q, now)
		}

		if sell > params.Capital {
			dropCapital++
			continue
		}
		maxQty := params.Capital / sell
		if int64(item.Limit) < maxQty {
			maxQty = int64(item.Limit)
		}
		if maxQty < 1 {
			dropQty++
			continue
		}

		if params.FilterStale && age > stalePickAge {
			dropStale++
			continue
		}

		totalVol := volumes[itemID].HighPriceVolume + volumes[itemID].LowPriceVolume
		if params.FilterLowVolume && totalVol < minPickVolume {
			dropVolume++
			continue
		}

		margin, marginPct := FlipMargin(buy, sell)

		factors := map[string]float64{
			factorProfit:    profitScore(margin, maxQty),
			factorVolume:    volumeScore(totalVol),
			factorFreshness: freshnessMult(age) * 50,
			factorStability: m.StabilityScore,
		}

		picks = append(picks, StablePick{
			ItemID:            itemID,
			Name:              item.Name,
			Buy:               buy,
			Sell:              sell,
			MeanBuy:           m.MeanBuy,
			MeanSell:          m.MeanSell,
			Margin:            margin,
			MarginPct:         sanitizeFloat(marginPct),
			MeanMargin:        m.MeanMarginPct,
			TotalVolume:       totalVol,
			AgeSeconds:        age,
			MaxQty:            maxQty,
			PotentialProfit:   margin * maxQty,
			SampleCount:       m.SampleCount,
			StabilityScore:    m.StabilityScore,
			PriceTrend:        m.PriceTrend,
			MarginTrend:       m.MarginTrend,
			AggressiveScore:   sanitizeFloat(blend(stablePickWeights[ModeAggressive], factors)),
			BalancedScore:     sanitizeFloat(blend(stablePickWeights[ModeBalanced], factors)),
			ConservativeScore: sanitizeFloat(blend(stablePickWeights[ModeConservative], factors)),
		})
	}

	dropped := dropScore + dropQuote + dropCapital + dropQty + dropStale + dropVolume
	if dropped > 0 {
		log.Printf("[DEBUG] StablePickFilter drops: score=%d quote=%d capital=%d qty=%d stale=%d volume=%d",
			dropScore, dropQuote, dropCapital, dropQty, dropStale, dropVolume)
	}

	sort.Slice(picks, func(i, j int) bool {
		return picks[i].AggressiveScore > picks[j].AggressiveScore
	})
	return picks
}
