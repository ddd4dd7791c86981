package engine

import "math"

// FlipsPerHour estimates how many units one operator can realistically turn
// over in an hour: a 7% capture of the hourly traded volume, capped by the
// per-4-hour trade limit spread evenly. Stale quotes discount the estimate
// hard; a five-minute-old price is unlikely to fill at all.
func FlipsPerHour(totalVolume int64, tradeLimit int, ageSeconds int64) float64 {
	maxPerHour := float64(tradeLimit) / 4
	volumeBased := float64(totalVolume) * 0.07

	base := math.Min(maxPerHour, math.Min(volumeBased, float64(totalVolume)))

	var mult float64
	switch {
	case ageSeconds > 300:
		mult = 0.1
	case ageSeconds > 180:
		mult = 0.4
	case ageSeconds > 60:
		mult = 0.7
	default:
		mult = 1.0
	}
	return base * mult
}

// Freshness labels for quote age, coarser than the scoring multipliers and
// meant for display.
const (
	FreshnessFresh = "Fresh"
	FreshnessOK    = "OK"
	FreshnessStale = "Stale"
	FreshnessDead  = "Dead"
)

// FreshnessStatus labels a quote's age and returns the matching execution
// probability multiplier.
func FreshnessStatus(ageSeconds int64) (string, float64) {
	switch {
	case ageSeconds > 300:
		return FreshnessDead, 0.1
	case ageSeconds > 180:
		return FreshnessStale, 0.4
	case ageSeconds > 60:
		return FreshnessOK, 0.7
	default:
		return FreshnessFresh, 1.0
	}
}
