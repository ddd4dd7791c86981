package db

import (
	"time"

	"dmm-flipper/internal/engine"
)

// CycleRecord is one archived refresh cycle summary.
type CycleRecord struct {
	ID               int64   `json:"id"`
	Timestamp        string  `json:"timestamp"`
	OpportunityCount int     `json:"opportunity_count"`
	StableCount      int     `json:"stable_count"`
	MoverCount       int     `json:"mover_count"`
	HighTicketCount  int     `json:"highticket_count"`
	TopMarginPct     float64 `json:"top_margin_pct"`
	DurationMs       int64   `json:"duration_ms"`
}

// InsertCycle inserts a cycle summary record and returns its ID.
func (d *DB) InsertCycle(snap *engine.Snapshot) int64 {
	topMargin := 0.0
	if len(snap.Opportunities) > 0 {
		topMargin = snap.Opportunities[0].MarginPct
	}
	result, err := d.sql.Exec(
		`INSERT INTO cycle_history
		 (timestamp, opportunity_count, stable_count, mover_count, highticket_count, top_margin_pct, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Format(time.RFC3339),
		len(snap.Opportunities), len(snap.StablePicks), len(snap.Movers), len(snap.HighTicket.Flips),
		topMargin, snap.DurationMS,
	)
	if err != nil {
		return 0
	}
	id, _ := result.LastInsertId()
	return id
}

// RecentCycles returns the last N archived cycle summaries (newest first).
func (d *DB) RecentCycles(limit int) []CycleRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(
		`SELECT id, timestamp, opportunity_count, stable_count, mover_count, highticket_count, top_margin_pct, duration_ms
		 FROM cycle_history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return []CycleRecord{}
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var r CycleRecord
		rows.Scan(&r.ID, &r.Timestamp, &r.OpportunityCount, &r.StableCount, &r.MoverCount, &r.HighTicketCount, &r.TopMarginPct, &r.DurationMs)
		records = append(records, r)
	}
	if records == nil {
		return []CycleRecord{}
	}
	return records
}

// CycleByID returns a single archived cycle summary.
func (d *DB) CycleByID(id int64) *CycleRecord {
	row := d.sql.QueryRow(
		`SELECT id, timestamp, opportunity_count, stable_count, mover_count, highticket_count, top_margin_pct, duration_ms
		 FROM cycle_history WHERE id = ?`,
		id,
	)
	var r CycleRecord
	if err := row.Scan(&r.ID, &r.Timestamp, &r.OpportunityCount, &r.StableCount, &r.MoverCount, &r.HighTicketCount, &r.TopMarginPct, &r.DurationMs); err != nil {
		return nil
	}
	return &r
}

// PruneCycles deletes archived cycles older than the given number of days,
// along with their result rows. Returns how many cycles were removed.
func (d *DB) PruneCycles(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)

	rows, err := d.sql.Query("SELECT id FROM cycle_history WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		rows.Scan(&id)
		ids = append(ids, id)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		tx.Exec("DELETE FROM opportunity_results WHERE cycle_id = ?", id)
		tx.Exec("DELETE FROM mover_results WHERE cycle_id = ?", id)
		tx.Exec("DELETE FROM highticket_results WHERE cycle_id = ?", id)
	}
	result, err := tx.Exec("DELETE FROM cycle_history WHERE timestamp < ?", cutoff)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	tx.Commit()
	count, _ := result.RowsAffected()
	return count, nil
}
