package db

import (
	"fmt"
	"strconv"

	"dmm-flipper/internal/config"
)

// LoadConfig reads config from SQLite. Missing keys keep their defaults,
// so settings added in later versions pick up sane values on old files.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}

	if len(m) == 0 {
		return cfg
	}

	if v, ok := m["capital"]; ok {
		cfg.Capital, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := m["min_margin_pct"]; ok {
		cfg.MinMarginPct, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["max_margin_pct"]; ok {
		cfg.MaxMarginPct, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["auto_refresh"]; ok {
		cfg.AutoRefresh, _ = strconv.ParseBool(v)
	}
	if v, ok := m["refresh_interval_seconds"]; ok {
		cfg.RefreshIntervalSeconds, _ = strconv.Atoi(v)
	}
	if v, ok := m["filter_stale"]; ok {
		cfg.FilterStale, _ = strconv.ParseBool(v)
	}
	if v, ok := m["filter_low_volume"]; ok {
		cfg.FilterLowVolume, _ = strconv.ParseBool(v)
	}
	if v, ok := m["max_results"]; ok {
		cfg.MaxResults, _ = strconv.Atoi(v)
	}

	return cfg
}

// SaveConfig writes config to SQLite (upsert all fields).
func (d *DB) SaveConfig(cfg *config.Config) error {
	pairs := map[string]string{
		"capital":                  strconv.FormatInt(cfg.Capital, 10),
		"min_margin_pct":           fmt.Sprintf("%g", cfg.MinMarginPct),
		"max_margin_pct":           fmt.Sprintf("%g", cfg.MaxMarginPct),
		"auto_refresh":             strconv.FormatBool(cfg.AutoRefresh),
		"refresh_interval_seconds": strconv.Itoa(cfg.RefreshIntervalSeconds),
		"filter_stale":             strconv.FormatBool(cfg.FilterStale),
		"filter_low_volume":        strconv.FormatBool(cfg.FilterLowVolume),
		"max_results":              strconv.Itoa(cfg.MaxResults),
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
