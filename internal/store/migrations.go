package store

import (
	"fmt"
	"log"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS forecast_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    run_key TEXT NOT NULL,
    fetched_at DATETIME NOT NULL,
    manifest_json TEXT,
    UNIQUE(source, run_key)
);

CREATE TABLE IF NOT EXISTS event_composites (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_key TEXT NOT NULL,
    event TEXT NOT NULL,
    computed_at DATETIME NOT NULL,
    instants INTEGER,
    cells_valid INTEGER,
    score_min REAL,
    score_max REAL,
    score_mean REAL,
    with_aod BOOLEAN DEFAULT TRUE,
    UNIQUE(run_key, event, with_aod)
);

CREATE TABLE IF NOT EXISTS point_queries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    queried_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    event TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    score REAL,
    factor_canvas REAL,
    factor_path REAL,
    factor_air REAL,
    factor_altitude REAL
);

CREATE INDEX IF NOT EXISTS idx_composites_event ON event_composites(event, computed_at);
`,
	},
}

func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	err = s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Printf("store: applying migration %d: %s", m.Version, m.Description)
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}
