package store

import (
	"database/sql"
	"time"

	"chromasky/internal/models"
)

// Store records forecast-run bookkeeping and computed composite
// summaries in SQLite. Grid data itself lives on disk in the data
// directory; the store only tracks what was fetched and computed.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ForecastRun is one fetched upstream model cycle.
type ForecastRun struct {
	ID           int64
	Source       string // "gfs" or "cams"
	RunKey       string // e.g. "20260829_t00z"
	FetchedAt    time.Time
	ManifestJSON string
}

// CompositeRecord summarizes one computed event composite.
type CompositeRecord struct {
	ID         int64
	RunKey     string
	Event      models.Event
	ComputedAt time.Time
	Instants   int
	CellsValid int
	ScoreMin   sql.NullFloat64
	ScoreMax   sql.NullFloat64
	ScoreMean  sql.NullFloat64
	WithAOD    bool
}

func (s *Store) UpsertRun(run ForecastRun) error {
	_, err := s.db.Exec(`
		INSERT INTO forecast_runs (source, run_key, fetched_at, manifest_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source, run_key) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			manifest_json = excluded.manifest_json
	`, run.Source, run.RunKey, run.FetchedAt, run.ManifestJSON)
	return err
}

func (s *Store) LatestRun(source string) (*ForecastRun, error) {
	row := s.db.QueryRow(`
		SELECT id, source, run_key, fetched_at, manifest_json
		FROM forecast_runs
		WHERE source = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`, source)

	var run ForecastRun
	err := row.Scan(&run.ID, &run.Source, &run.RunKey, &run.FetchedAt, &run.ManifestJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) UpsertComposite(rec CompositeRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO event_composites (run_key, event, computed_at, instants, cells_valid, score_min, score_max, score_mean, with_aod)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_key, event, with_aod) DO UPDATE SET
			computed_at = excluded.computed_at,
			instants = excluded.instants,
			cells_valid = excluded.cells_valid,
			score_min = excluded.score_min,
			score_max = excluded.score_max,
			score_mean = excluded.score_mean
	`, rec.RunKey, string(rec.Event), rec.ComputedAt, rec.Instants, rec.CellsValid,
		rec.ScoreMin, rec.ScoreMax, rec.ScoreMean, rec.WithAOD)
	return err
}

func (s *Store) LatestComposite(event models.Event) (*CompositeRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, run_key, event, computed_at, instants, cells_valid, score_min, score_max, score_mean, with_aod
		FROM event_composites
		WHERE event = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`, string(event))

	var rec CompositeRecord
	var ev string
	err := row.Scan(&rec.ID, &rec.RunKey, &ev, &rec.ComputedAt, &rec.Instants, &rec.CellsValid,
		&rec.ScoreMin, &rec.ScoreMax, &rec.ScoreMean, &rec.WithAOD)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Event = models.Event(ev)
	return &rec, nil
}

// RecordPointQuery logs one single-point API query for later analysis
// of where people actually chase sunsets.
func (s *Store) RecordPointQuery(event models.Event, lat, lon float64, fs models.FactorScores) error {
	_, err := s.db.Exec(`
		INSERT INTO point_queries (event, latitude, longitude, score, factor_canvas, factor_path, factor_air, factor_altitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, string(event), lat, lon, fs.Index, fs.Canvas, fs.LightPath, fs.AirQuality, fs.CloudAltitude)
	return err
}

// PointQueryCount reports how many point queries were logged since t.
func (s *Store) PointQueryCount(since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM point_queries WHERE queried_at >= ?`, since).Scan(&n)
	return n, err
}
