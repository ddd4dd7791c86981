package engine

import (
	"log"
	"sort"

	"dmm-flipper/internal/wiki"
)

// Hard filter bounds for the live scan. Items outside these never reach
// scoring; the margin band itself is operator-configured.
const (
	maxQuoteAge    = 300 // seconds; both sides must have traded recently
	minBuyPrice    = 10  // coins; sub-10 items round the 1% tax to zero
	maxSpreadRatio = 2.0 // sell/buy above this is junk or a scam book
	minTotalVolume = 10  // units/hr across both sides
)

// OpportunityParams holds the operator inputs for a live scan.
type OpportunityParams struct {
	Capital      int64
	MinMarginPct float64
	MaxMarginPct float64
}

// ScanOpportunities filters every quoted item down to executable flips and
// scores the survivors. Results are ranked by the aggressive blend; the
// balanced and conservative blends ride along for client-side re-sorting.
func ScanOpportunities(items map[int]wiki.Item, quotes map[int]wiki.Quote, volumes map[int]wiki.VolumeQuote, params OpportunityParams, now int64) []Opportunity {
	var results []Opportunity
	var dropUnknown, dropPartial, dropStale, dropCheap, dropSpread, dropCapital, dropVolume, dropMargin, dropQty int

	for itemID, q := range quotes {
		item, ok := items[itemID]
		if !ok {
			dropUnknown++
			continue
		}
		if q.High <= 0 || q.Low <= 0 || q.HighTime <= 0 || q.LowTime <= 0 {
			dropPartial++
			continue
		}

		buy, sell := NormalizeQuote(q)
		age := quoteAge(q, now)
		if age > maxQuoteAge {
			dropStale++
			continue
		}
		if buy < minBuyPrice {
			dropCheap++
			continue
		}
		if float64(sell)/float64(buy) > maxSpreadRatio {
			dropSpread++
			continue
		}
		if sell > params.Capital {
			dropCapital++
			continue
		}

		totalVol := volumes[itemID].HighPriceVolume + volumes[itemID].LowPriceVolume
		if totalVol < minTotalVolume {
			dropVolume++
			continue
		}

		margin, marginPct := FlipMargin(buy, sell)
		if marginPct < params.MinMarginPct || marginPct > params.MaxMarginPct {
			dropMargin++
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

		factors := map[string]float64{
			factorProfit:    profitScore(margin, maxQty),
			factorVolume:    volumeScore(totalVol),
			factorFreshness: freshnessMult(age) * 50,
		}

		flips := FlipsPerHour(totalVol, item.Limit, age)
		results = append(results, Opportunity{
			ItemID:            itemID,
			Name:              item.Name,
			Buy:               buy,
			Sell:              sell,
			Margin:            margin,
			MarginPct:         sanitizeFloat(marginPct),
			TotalVolume:       totalVol,
			AgeSeconds:        age,
			TradeLimit:        item.Limit,
			MaxQty:            maxQty,
			PotentialProfit:   margin * maxQty,
			FlipsPerHour:      sanitizeFloat(flips),
			HourlyProfit:      int64(flips * float64(margin)),
			ProfitScore:       factors[factorProfit],
			VolumeScore:       factors[factorVolume],
			FreshnessScore:    factors[factorFreshness],
			AggressiveScore:   sanitizeFloat(blend(opportunityWeights[ModeAggressive], factors)),
			BalancedScore:     sanitizeFloat(blend(opportunityWeights[ModeBalanced], factors)),
			ConservativeScore: sanitizeFloat(blend(opportunityWeights[ModeConservative], factors)),
		})
	}

	dropped := dropUnknown + dropPartial + dropStale + dropCheap + dropSpread + dropCapital + dropVolume + dropMargin + dropQty
	if dropped > 0 {
		log.Printf("[DEBUG] OpportunityFilter drops: unknown=%d partial=%d stale=%d cheap=%d spread=%d capital=%d volume=%d margin=%d qty=%d",
			dropUnknown, dropPartial, dropStale, dropCheap, dropSpread, dropCapital, dropVolume, dropMargin, dropQty)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].AggressiveScore > results[j].AggressiveScore
	})
	return results
}
