package db

import (
	"log"

	"dmm-flipper/internal/engine"
)

// archiveTopRows caps how many rows of each ranked list are archived per
// cycle. The full lists live in the published snapshot; the archive keeps
// the head for later browsing.
const archiveTopRows = 50

// ArchiveResults writes the top result rows of a snapshot under an already
// inserted cycle row. Safe to call from a goroutine after InsertCycle.
func (d *DB) ArchiveResults(cycleID int64, snap *engine.Snapshot) {
	if cycleID == 0 || snap == nil {
		return
	}

	opps := snap.Opportunities
	if len(opps) > archiveTopRows {
		opps = opps[:archiveTopRows]
	}
	d.InsertOpportunityResults(cycleID, opps)

	movers := snap.Movers
	if len(movers) > archiveTopRows {
		movers = movers[:archiveTopRows]
	}
	d.InsertMoverResults(cycleID, movers)

	flips := snap.HighTicket.Flips
	if len(flips) > archiveTopRows {
		flips = flips[:archiveTopRows]
	}
	d.InsertHighTicketResults(cycleID, flips)
}

// InsertOpportunityResults bulk-inserts opportunity rows linked to a cycle.
func (d *DB) InsertOpportunityResults(cycleID int64, results []engine.Opportunity) {
	if cycleID == 0 || len(results) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		log.Printf("[DB] InsertOpportunityResults begin tx: %v", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO opportunity_results (
		cycle_id, item_id, item_name, buy, sell, margin, margin_pct,
		total_volume, age_seconds, max_qty, potential_profit,
		flips_per_hour, hourly_profit,
		aggressive_score, balanced_score, conservative_score
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		log.Printf("[DB] InsertOpportunityResults prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, r := range results {
		stmt.Exec(
			cycleID, r.ItemID, r.Name, r.Buy, r.Sell, r.Margin, r.MarginPct,
			r.TotalVolume, r.AgeSeconds, r.MaxQty, r.PotentialProfit,
			r.FlipsPerHour, r.HourlyProfit,
			r.AggressiveScore, r.BalancedScore, r.ConservativeScore,
		)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] InsertOpportunityResults commit: %v", err)
	}
}

// GetOpportunityResults retrieves archived opportunity rows for a cycle.
func (d *DB) GetOpportunityResults(cycleID int64) []engine.Opportunity {
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, buy, sell, margin, margin_pct,
			total_volume, age_seconds, max_qty, potential_profit,
			flips_per_hour, hourly_profit,
			aggressive_score, balanced_score, conservative_score
		FROM opportunity_results WHERE cycle_id = ? ORDER BY id
	`, cycleID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var results []engine.Opportunity
	for rows.Next() {
		var r engine.Opportunity
		rows.Scan(
			&r.ItemID, &r.Name, &r.Buy, &r.Sell, &r.Margin, &r.MarginPct,
			&r.TotalVolume, &r.AgeSeconds, &r.MaxQty, &r.PotentialProfit,
			&r.FlipsPerHour, &r.HourlyProfit,
			&r.AggressiveScore, &r.BalancedScore, &r.ConservativeScore,
		)
		results = append(results, r)
	}
	return results
}

// InsertMoverResults bulk-inserts mover rows linked to a cycle.
func (d *DB) InsertMoverResults(cycleID int64, movers []engine.Mover) {
	if cycleID == 0 || len(movers) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		log.Printf("[DB] InsertMoverResults begin tx: %v", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO mover_results (
		cycle_id, item_id, item_name, price_change_pct, margin_change_pts,
		volume_ratio, price_trend, margin_trend, urgency
	) VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		log.Printf("[DB] InsertMoverResults prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, m := range movers {
		stmt.Exec(
			cycleID, m.ItemID, m.Name, m.PriceChangePct, m.MarginChangePts,
			m.VolumeRatio, m.PriceTrend, m.MarginTrend, m.Urgency,
		)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] InsertMoverResults commit: %v", err)
	}
}

// GetMoverResults retrieves archived mover rows for a cycle.
func (d *DB) GetMoverResults(cycleID int64) []engine.Mover {
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, price_change_pct, margin_change_pts,
			volume_ratio, price_trend, margin_trend, urgency
		FROM mover_results WHERE cycle_id = ? ORDER BY id
	`, cycleID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var movers []engine.Mover
	for rows.Next() {
		var m engine.Mover
		rows.Scan(
			&m.ItemID, &m.Name, &m.PriceChangePct, &m.MarginChangePts,
			&m.VolumeRatio, &m.PriceTrend, &m.MarginTrend, &m.Urgency,
		)
		movers = append(movers, m)
	}
	return movers
}

// InsertHighTicketResults bulk-inserts accepted high-ticket rows for a cycle.
func (d *DB) InsertHighTicketResults(cycleID int64, flips []engine.HighTicketFlip) {
	if cycleID == 0 || len(flips) == 0 {
		return
	}

	tx, err := d.sql.Begin()
	if err != nil {
		log.Printf("[DB] InsertHighTicketResults begin tx: %v", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO highticket_results (
		cycle_id, item_id, item_name, buy, sell, profit, roi_pct,
		age_seconds, risk_label, flip_score
	) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		log.Printf("[DB] InsertHighTicketResults prepare: %v", err)
		return
	}
	defer stmt.Close()

	for _, f := range flips {
		stmt.Exec(
			cycleID, f.ItemID, f.Name, f.Buy, f.Sell, f.Profit, f.ROIPct,
			f.AgeSeconds, f.RiskLabel, f.FlipScore,
		)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[DB] InsertHighTicketResults commit: %v", err)
	}
}

// GetHighTicketResults retrieves archived high-ticket rows for a cycle.
func (d *DB) GetHighTicketResults(cycleID int64) []engine.HighTicketFlip {
	rows, err := d.sql.Query(`
		SELECT item_id, item_name, buy, sell, profit, roi_pct,
			age_seconds, risk_label, flip_score
		FROM highticket_results WHERE cycle_id = ? ORDER BY id
	`, cycleID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var flips []engine.HighTicketFlip
	for rows.Next() {
		var f engine.HighTicketFlip
		rows.Scan(
			&f.ItemID, &f.Name, &f.Buy, &f.Sell, &f.Profit, &f.ROIPct,
			&f.AgeSeconds, &f.RiskLabel, &f.FlipScore,
		)
		flips = append(flips, f)
	}
	return flips
}
