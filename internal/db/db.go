package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"dmm-flipper/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

func dbPath() string {
	// Prefer working directory so the DB is stable across go run / go build.
	// Fall back to executable directory for deployed builds.
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "dmm-flipper.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "dmm-flipper.db")
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open() (*DB, error) {
	path := dbPath()
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS cycle_history (
				id                INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp         TEXT NOT NULL,
				opportunity_count INTEGER NOT NULL,
				stable_count      INTEGER NOT NULL,
				mover_count       INTEGER NOT NULL,
				highticket_count  INTEGER NOT NULL,
				top_margin_pct    REAL NOT NULL,
				duration_ms       INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_cycle_history_ts ON cycle_history(timestamp);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS opportunity_results (
				id                 INTEGER PRIMARY KEY AUTOINCREMENT,
				cycle_id           INTEGER NOT NULL REFERENCES cycle_history(id),
				item_id            INTEGER,
				item_name          TEXT,
				buy                INTEGER,
				sell               INTEGER,
				margin             INTEGER,
				margin_pct         REAL,
				total_volume       INTEGER,
				age_seconds        INTEGER,
				max_qty            INTEGER,
				potential_profit   INTEGER,
				flips_per_hour     REAL,
				hourly_profit      INTEGER,
				aggressive_score   REAL,
				balanced_score     REAL,
				conservative_score REAL
			);
			CREATE INDEX IF NOT EXISTS idx_opportunity_cycle ON opportunity_results(cycle_id);
			CREATE INDEX IF NOT EXISTS idx_opportunity_item ON opportunity_results(item_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (opportunity archive)")
	}

	if version < 3 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS mover_results (
				id                INTEGER PRIMARY KEY AUTOINCREMENT,
				cycle_id          INTEGER NOT NULL REFERENCES cycle_history(id),
				item_id           INTEGER,
				item_name         TEXT,
				price_change_pct  REAL,
				margin_change_pts REAL,
				volume_ratio      REAL,
				price_trend       TEXT,
				margin_trend      TEXT,
				urgency           REAL
			);
			CREATE INDEX IF NOT EXISTS idx_mover_cycle ON mover_results(cycle_id);

			CREATE TABLE IF NOT EXISTS highticket_results (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				cycle_id    INTEGER NOT NULL REFERENCES cycle_history(id),
				item_id     INTEGER,
				item_name   TEXT,
				buy         INTEGER,
				sell        INTEGER,
				profit      INTEGER,
				roi_pct     REAL,
				age_seconds INTEGER,
				risk_label  TEXT,
				flip_score  REAL
			);
			CREATE INDEX IF NOT EXISTS idx_highticket_cycle ON highticket_results(cycle_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (3);
		`)
		if err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		logger.Info("DB", "Applied migration v3 (mover and high-ticket archive)")
	}

	return nil
}
