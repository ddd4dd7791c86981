package engine

import (
	"log"
	"math"
	"sort"

	"dmm-flipper/internal/wiki"
)

// High-ticket items trade rarely, so every limit here is looser than the
// live-scan equivalent: a day-old quote on an expensive item is still
// actionable, and volume data is often simply absent.
const (
	highTicketPercentile   = 75
	highTicketMaxAge       = 24 * 3600
	highTicketSpreadRatio  = 2.5
	highTicketMinMarginPct = 2.0
	highTicketRiskAge      = 3600
	highTicketRiskSpread   = 1.5
	inferVolumeAge         = 3600 // quote this fresh implies at least one trade
	lowLimitThreshold      = 8    // catalog trade limit marking an item as high value
)

// Rejection reasons, reported verbatim so the operator can see why an
// expensive item is missing from the flip list.
const (
	reasonMissingSide  = "missing price side"
	reasonStaleQuote   = "quote older than 24h"
	reasonWideSpread   = "spread above 2.5x"
	reasonThinMargin   = "margin below 2%"
	reasonUnaffordable = "price above capital"
)

// Risk factors that discount an accepted flip's score.
const (
	riskNoVolume   = "no volume data"
	riskStaleQuote = "quote older than 1h"
	riskWideSpread = "spread above 1.5x"
)

// ScanHighTicket classifies the expensive end of the market. The price
// threshold is the 75th percentile of every normalized price this cycle,
// so "expensive" tracks the market instead of a fixed constant. Items
// above it face relaxed filters; every exclusion is recorded with reasons.
func ScanHighTicket(items map[int]wiki.Item, quotes map[int]wiki.Quote, volumes map[int]wiki.VolumeQuote, capital int64, now int64) HighTicketReport {
	report := HighTicketReport{RejectReasons: make(map[string]int)}

	var prices []float64
	for _, q := range quotes {
		if q.High <= 0 && q.Low <= 0 {
			continue
		}
		_, sell := NormalizeQuote(q)
		prices = append(prices, float64(sell))
	}
	if len(prices) == 0 {
		return report
	}
	sort.Float64s(prices)
	report.Threshold = percentile(prices, highTicketPercentile)

	for itemID, q := range quotes {
		item, ok := items[itemID]
		if !ok {
			continue
		}
		buy, sell := NormalizeQuote(q)
		if float64(sell) < report.Threshold {
			continue
		}
		report.AboveThreshold++

		if q.High <= 0 || q.Low <= 0 || q.HighTime <= 0 || q.LowTime <= 0 {
			report.reject(itemID, item.Name, sell, []string{reasonMissingSide})
			continue
		}

		// All failures are collected, not short-circuited; an item can be
		// both stale and thin-margined and the report should say so.
		age := quoteAge(q, now)
		spread := float64(sell) / float64(buy)
		margin, marginPct := FlipMargin(buy, sell)

		var reasons []string
		if age > highTicketMaxAge {
			reasons = append(reasons, reasonStaleQuote)
		}
		if spread > highTicketSpreadRatio {
			reasons = append(reasons, reasonWideSpread)
		}
		if marginPct < highTicketMinMarginPct {
			reasons = append(reasons, reasonThinMargin)
		}
		if sell > capital {
			reasons = append(reasons, reasonUnaffordable)
		}
		if len(reasons) > 0 {
			report.reject(itemID, item.Name, sell, reasons)
			continue
		}

		totalVol := int64(0)
		vq, volumeKnown := volumes[itemID]
		if volumeKnown {
			totalVol = vq.HighPriceVolume + vq.LowPriceVolume
		}
		hasVolume := volumeKnown && totalVol > 0
		inferred := false
		if !hasVolume && age < inferVolumeAge {
			// No volume entry, but one side traded within the hour. At
			// least one trade happened; don't treat the item as dead.
			hasVolume = true
			inferred = true
		}

		var risks []string
		if !hasVolume {
			risks = append(risks, riskNoVolume)
		}
		if age > highTicketRiskAge {
			risks = append(risks, riskStaleQuote)
		}
		if spread > highTicketRiskSpread {
			risks = append(risks, riskWideSpread)
		}

		volFactor := 50.0
		if hasVolume {
			volFactor = 100
		}
		score := 0.40*math.Min(100, float64(margin)/5000) +
			0.25*math.Min(100, marginPct*10) +
			0.25*freshnessTier(age) +
			0.10*volFactor
		score *= 1 - 0.1*float64(len(risks))

		maxQty := capital / sell
		if int64(item.Limit) < maxQty && item.Limit > 0 {
			maxQty = int64(item.Limit)
		}

		report.Flips = append(report.Flips, HighTicketFlip{
			ItemID:         itemID,
			Name:           item.Name,
			Buy:            buy,
			Sell:           sell,
			Profit:         margin,
			ROIPct:         sanitizeFloat(marginPct),
			AgeSeconds:     age,
			MaxQty:         maxQty,
			TradeLimit:     item.Limit,
			CapitalLocked:  buy * maxQty,
			TotalVolume:    totalVol,
			VolumeKnown:    volumeKnown,
			VolumeInferred: inferred,
			RiskFactors:    risks,
			RiskLabel:      riskLabel(len(risks)),
			FlipScore:      sanitizeFloat(score),
		})
	}

	for itemID, item := range items {
		if item.Limit <= 0 || item.Limit > lowLimitThreshold {
			continue
		}
		if _, ok := quotes[itemID]; ok {
			continue
		}
		report.NoData = append(report.NoData, NoQuoteItem{ItemID: itemID, Name: item.Name, TradeLimit: item.Limit})
	}

	sort.Slice(report.Flips, func(i, j int) bool {
		return report.Flips[i].FlipScore > report.Flips[j].FlipScore
	})
	sort.Slice(report.Rejected, func(i, j int) bool {
		return report.Rejected[i].Sell > report.Rejected[j].Sell
	})
	sort.Slice(report.NoData, func(i, j int) bool {
		return report.NoData[i].Name < report.NoData[j].Name
	})
	report.RejectedCount = len(report.Rejected)

	log.Printf("[DEBUG] HighTicket: threshold=%.0f above=%d passed=%d rejected=%d nodata=%d",
		report.Threshold, report.AboveThreshold, len(report.Flips), report.RejectedCount, len(report.NoData))
	return report
}

// reject records one excluded item, counting the item once and every
// reason occurrence separately.
func (r *HighTicketReport) reject(itemID int, name string, sell int64, reasons []string) {
	r.Rejected = append(r.Rejected, HighTicketRejection{ItemID: itemID, Name: name, Sell: sell, Reasons: reasons})
	for _, reason := range reasons {
		r.RejectReasons[reason]++
	}
}

// freshnessTier scores quote age on the relaxed high-ticket scale, where
// even a four-hour-old quote retains most of its value.
func freshnessTier(ageSeconds int64) float64 {
	switch {
	case ageSeconds < 300:
		return 100
	case ageSeconds < 1800:
		return 90
	case ageSeconds < 3600:
		return 80
	case ageSeconds < 14400:
		return 60
	default:
		return 40
	}
}

func riskLabel(riskCount int) string {
	switch {
	case riskCount == 0:
		return "Low risk"
	case riskCount == 1:
		return "Medium risk"
	default:
		return "High risk"
	}
}
