package engine

import "math"

// mean returns the arithmetic mean, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev calculates the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// percentile returns the p-th percentile from a sorted slice (p in 0..100),
// interpolating between neighbours.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sanitizeFloat replaces NaN/Inf with 0 to prevent JSON marshal errors.
func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// volumeScore maps an hourly traded-unit count onto a log scale so both
// low-volume (10/hr) and high-volume (10000/hr) items are fairly
// represented. log10(10)=1 → 25, log10(10000)=4 → 100.
func volumeScore(totalVolume int64) float64 {
	v := float64(totalVolume)
	if v < 1 {
		v = 1
	}
	return math.Log10(v) * 25
}

// freshnessMult discounts a quote by its age. Quotes under a minute old
// count in full; anything past three minutes is heavily discounted.
func freshnessMult(ageSeconds int64) float64 {
	switch {
	case ageSeconds < 60:
		return 1.0
	case ageSeconds < 180:
		return 0.7
	default:
		return 0.4
	}
}

// profitScore converts per-cycle profit potential into a 0..50 score.
func profitScore(margin, maxQty int64) float64 {
	return math.Min(50, float64(margin*maxQty)/100)
}
