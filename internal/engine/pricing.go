package engine

import "dmm-flipper/internal/wiki"

// taxRate is the exchange's cut of every sale, applied to the sell side and
// floored to whole coins.
const taxRate = 0.01

// NormalizeQuote orders a quote's two sides. The feed's high/low fields are
// not guaranteed buy/sell ordered, so the sell price is always the larger
// side and the buy price the smaller. A missing side comes back as 0 in buy.
func NormalizeQuote(q wiki.Quote) (buy, sell int64) {
	if q.High >= q.Low {
		return q.Low, q.High
	}
	return q.High, q.Low
}

// FlipMargin returns the after-tax profit per unit and its percentage of
// the buy price. A zero buy price yields a zero percentage rather than a
// division fault.
func FlipMargin(buy, sell int64) (margin int64, marginPct float64) {
	margin = sell - buy - int64(float64(sell)*taxRate)
	if buy > 0 {
		marginPct = float64(margin) / float64(buy) * 100
	}
	return margin, marginPct
}

// quoteAge is the age of the older quote side. Both sides must be fresh for
// a flip to be executable, so the stale one dominates.
func quoteAge(q wiki.Quote, now int64) int64 {
	buyAge := now - q.HighTime
	sellAge := now - q.LowTime
	if buyAge > sellAge {
		return buyAge
	}
	return sellAge
}
