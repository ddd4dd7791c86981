package engine

import (
	"math"

	"dmm-flipper/internal/history"
)

// Trailing-window selection parameters. A sparse item falls back to its
// last few samples when the 30-minute window is too thin (see
// history.Store.Recent).
const (
	stabilityWindowSeconds = 1800
	stabilityMinSamples    = 3
	stabilityFallback      = 10
)

// Price trend labels. Pumping/Dumping mark violent movement, Rising/Falling
// mild movement.
const (
	TrendPumping = "Pumping"
	TrendDumping = "Dumping"
	TrendRising  = "Rising"
	TrendFalling = "Falling"
	TrendStable  = "Stable"
)

// Margin trend labels.
const (
	TrendExpanding = "Expanding"
	TrendSqueezing = "Squeezing"
)

// AnalyzeStability examines one item's trailing history window and scores
// how consistent its margin has been. It returns false for items with
// fewer than 3 total samples; there is no meaningful trend to read from
// one or two points.
func AnalyzeStability(store *history.Store, itemID int, now int64) (StabilityMetrics, bool) {
	if store.Len(itemID) < 3 {
		return StabilityMetrics{}, false
	}

	window := store.Recent(itemID, stabilityWindowSeconds, stabilityMinSamples, stabilityFallback, now)
	if len(window) == 0 {
		return StabilityMetrics{}, false
	}

	margins := make([]float64, len(window))
	buys := make([]float64, len(window))
	sells := make([]float64, len(window))
	vols := make([]float64, len(window))
	for i, s := range window {
		margins[i] = s.MarginPct
		buys[i] = float64(s.Buy)
		sells[i] = float64(s.Sell)
		vols[i] = float64(s.Volume)
	}

	meanMargin := mean(margins)
	marginStd := stdDev(margins)

	last := window[len(window)-1]
	dataAge := now - last.Timestamp

	// Compare the two halves of the window to see which way the buy price
	// and the margin moved. The midpoint floors, so the second half is the
	// larger one for odd window sizes.
	var priceChange, marginChange float64
	mid := len(window) / 2
	if mid > 0 {
		firstBuy := mean(buys[:mid])
		secondBuy := mean(buys[mid:])
		if firstBuy != 0 {
			priceChange = (secondBuy - firstBuy) / firstBuy * 100
		}
		marginChange = mean(margins[mid:]) - mean(margins[:mid])
	}

	penalty := freshnessPenalty(dataAge)
	priceTrend := labelPriceTrend(priceChange)

	score := math.Max(0, 50-marginStd*10) +
		math.Min(30, meanMargin) +
		math.Min(10, float64(len(window))) -
		penalty
	if priceTrend == TrendStable {
		score += 10
	}

	return StabilityMetrics{
		SampleCount:      len(window),
		DataAgeSeconds:   dataAge,
		MeanBuy:          int64(mean(buys)),
		MeanSell:         int64(mean(sells)),
		MeanVolume:       mean(vols),
		MeanMarginPct:    sanitizeFloat(meanMargin),
		StdevMarginPct:   sanitizeFloat(marginStd),
		PriceChangePct:   sanitizeFloat(priceChange),
		MarginChangePts:  sanitizeFloat(marginChange),
		PriceTrend:       priceTrend,
		MarginTrend:      labelMarginTrend(marginChange),
		FreshnessPenalty: penalty,
		StabilityScore:   clamp(score, 0, 100),
		LatestBuy:        last.Buy,
		LatestSell:       last.Sell,
		LatestMarginPct:  last.MarginPct,
		LatestVolume:     last.Volume,
	}, true
}

// labelPriceTrend buckets a buy-price change percentage. Thresholds are
// fixed, not operator-configurable.
func labelPriceTrend(changePct float64) string {
	switch {
	case changePct > 10:
		return TrendPumping
	case changePct < -10:
		return TrendDumping
	case changePct > 3:
		return TrendRising
	case changePct < -3:
		return TrendFalling
	default:
		return TrendStable
	}
}

// labelMarginTrend buckets a margin change in percentage points.
func labelMarginTrend(changePts float64) string {
	switch {
	case changePts > 3:
		return TrendExpanding
	case changePts < -3:
		return TrendSqueezing
	default:
		return TrendStable
	}
}

// freshnessPenalty docks the stability score when the newest sample is
// already old. Margins read off a ten-minute-old window are guesses.
func freshnessPenalty(dataAgeSeconds int64) float64 {
	switch {
	case dataAgeSeconds > 600:
		return 30
	case dataAgeSeconds > 300:
		return 15
	default:
		return 0
	}
}
