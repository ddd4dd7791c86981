package engine

import (
	"fmt"
	"math"
	"sort"

	"dmm-flipper/internal/history"
	"dmm-flipper/internal/wiki"
)

// Mover detection thresholds. These are looser than the stability trend
// buckets on purpose: the detector exists to surface movement early, so a
// 3% drift already qualifies.
const (
	moverPriceThresholdPct  = 3.0
	moverMarginThresholdPts = 3.0
	moverVolumeRatio        = 2.0
	moverVolumeRatioHigh    = 3.0
)

// ScanMovers flags items whose trailing window shows abnormal movement on
// any of price, margin or volume, ranked by how urgently the movement
// deserves attention. Squeezing margins outrank expanding ones; a closing
// window matters more than an opening one.
func ScanMovers(store *history.Store, items map[int]wiki.Item, now int64) []Mover {
	var movers []Mover

	for _, itemID := range store.ItemIDs() {
		m, ok := AnalyzeStability(store, itemID, now)
		if !ok {
			continue
		}

		volumeRatio := 0.0
		if m.MeanVolume > 0 {
			volumeRatio = float64(m.LatestVolume) / m.MeanVolume
		}

		priceMoved := math.Abs(m.PriceChangePct) > moverPriceThresholdPct
		marginMoved := math.Abs(m.MarginChangePts) > moverMarginThresholdPts
		volumeMoved := volumeRatio > moverVolumeRatio
		if !priceMoved && !marginMoved && !volumeMoved {
			continue
		}

		urgency := 0.0
		switch m.PriceTrend {
		case TrendPumping, TrendDumping:
			urgency += 50
		case TrendRising, TrendFalling:
			urgency += 25
		}
		switch m.MarginTrend {
		case TrendExpanding:
			urgency += 20
		case TrendSqueezing:
			urgency += 30
		}
		if volumeRatio > moverVolumeRatioHigh {
			urgency += 20
		} else if volumeRatio > moverVolumeRatio {
			urgency += 10
		}

		movers = append(movers, Mover{
			ItemID:          itemID,
			Name:            itemName(items, itemID),
			SampleCount:     m.SampleCount,
			PriceChangePct:  m.PriceChangePct,
			MarginChangePts: m.MarginChangePts,
			VolumeRatio:     sanitizeFloat(volumeRatio),
			PriceTrend:      m.PriceTrend,
			MarginTrend:     m.MarginTrend,
			LatestBuy:       m.LatestBuy,
			LatestSell:      m.LatestSell,
			LatestMarginPct: m.LatestMarginPct,
			Urgency:         urgency,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		return movers[i].Urgency > movers[j].Urgency
	})
	return movers
}

func itemName(items map[int]wiki.Item, itemID int) string {
	if item, ok := items[itemID]; ok {
		return item.Name
	}
	return fmt.Sprintf("Item %d", itemID)
}
