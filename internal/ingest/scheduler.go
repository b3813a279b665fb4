package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"chromasky/internal/astro"
	"chromasky/internal/grid"
	"chromasky/internal/metrics"
	"chromasky/internal/models"
	"chromasky/internal/render"
	"chromasky/internal/score"
	"chromasky/internal/store"
)

// Scheduler periodically downloads upstream cycles and recomputes the
// event composites. All scoring happens on data already on disk; the
// download and compute loops are independent tickers.
type Scheduler struct {
	store   *store.Store
	gfs     *GFSClient
	cams    *CAMSClient
	archive *ArchiveClient
	source  SnapshotSource
	scorer  *score.Scorer
	cache   *render.Cache
	windows *Windows
	band    astro.VisibilityBand
	post    score.PostConfig
	dataDir string
	useAOD  bool

	downloadInterval time.Duration
	computeInterval  time.Duration
}

func NewScheduler(st *store.Store, gfs *GFSClient, cams *CAMSClient, src SnapshotSource, cache *render.Cache, windows *Windows, dataDir string) *Scheduler {
	return &Scheduler{
		store:            st,
		gfs:              gfs,
		cams:             cams,
		archive:          NewArchiveClient(),
		source:           src,
		scorer:           score.NewScorer(),
		cache:            cache,
		windows:          windows,
		band:             astro.DefaultBand,
		post:             score.DefaultPostConfig,
		dataDir:          dataDir,
		useAOD:           true,
		downloadInterval: 6 * time.Hour,
		computeInterval:  1 * time.Hour,
	}
}

// SetUseAOD disables the air quality factor input (factor C then runs
// on its seasonal default everywhere).
func (s *Scheduler) SetUseAOD(v bool) { s.useAOD = v }

// SetPostConfig overrides the clip/smooth/resample stage settings.
func (s *Scheduler) SetPostConfig(cfg score.PostConfig) { s.post = cfg }

func (s *Scheduler) Run(ctx context.Context) {
	s.downloadOnce()
	s.computeAll()

	dlTicker := time.NewTicker(s.downloadInterval)
	cmpTicker := time.NewTicker(s.computeInterval)
	defer dlTicker.Stop()
	defer cmpTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-dlTicker.C:
			s.downloadOnce()
			s.computeAll()
		case <-cmpTicker.C:
			s.computeAll()
		}
	}
}

// DownloadOnce fetches the latest upstream cycle and exits. Used by
// the -once CLI mode.
func (s *Scheduler) DownloadOnce() error { return s.downloadCycle(time.Now()) }

func (s *Scheduler) downloadOnce() {
	if err := s.downloadCycle(time.Now()); err != nil {
		log.Printf("scheduler: download: %v", err)
	}
}

func (s *Scheduler) downloadCycle(now time.Time) error {
	runDate, runHour := LatestCycle(now)
	cycleTime, _ := time.Parse("20060102 15", fmt.Sprintf("%s %s", runDate, runHour))

	m := &Manifest{
		Source:    "gfs",
		RunDate:   runDate,
		RunHour:   runHour,
		FetchedAt: now.UTC(),
		Files:     map[string]string{},
	}

	hours, err := s.forecastHours(now, cycleTime)
	if err != nil {
		return err
	}

	for h := range hours {
		path, err := s.gfs.SaveForecastHour(s.dataDir, runDate, runHour, h)
		if err != nil {
			log.Printf("scheduler: gfs f%03d: %v", h, err)
			continue
		}
		m.Files[fmt.Sprintf("f%03d", h)] = path
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("download cycle %s: no files fetched", m.RunKey())
	}

	if err := WriteManifest(s.dataDir, m); err != nil {
		return err
	}
	manifestJSON, _ := json.Marshal(m)
	if err := s.store.UpsertRun(store.ForecastRun{
		Source: "gfs", RunKey: m.RunKey(), FetchedAt: m.FetchedAt, ManifestJSON: string(manifestJSON),
	}); err != nil {
		return err
	}

	if s.useAOD && s.cams.Enabled() {
		if path, err := s.cams.SaveAOD(s.dataDir, cycleTime); err != nil {
			log.Printf("scheduler: cams: %v (continuing without AOD)", err)
		} else {
			if err := s.store.UpsertRun(store.ForecastRun{
				Source: "cams", RunKey: m.RunKey(), FetchedAt: time.Now().UTC(), ManifestJSON: fmt.Sprintf(`{"path":%q}`, path),
			}); err != nil {
				return err
			}
		}
	}

	// New files on disk, converted snapshots may have changed.
	return s.source.Reload()
}

// forecastHours collects the de-duplicated forecast hours that cover
// every event window relative to now, for a cycle starting at cycleTime.
func (s *Scheduler) forecastHours(now, cycleTime time.Time) (map[int]bool, error) {
	hours := map[int]bool{}
	for _, ev := range models.Events {
		instants, err := s.windows.Resolve(ev, now)
		if err != nil {
			return nil, err
		}
		for _, t := range instants {
			h := int(t.Sub(cycleTime).Round(time.Hour).Hours())
			if h >= 0 && h <= 120 {
				hours[h] = true
			}
		}
	}
	return hours, nil
}

// Backfill fetches an archived cycle for a past date (YYYYMMDD) from
// the NCEI archive and registers it like a live download, so past
// event maps can be recomputed and compared against what the sky
// actually did.
func (s *Scheduler) Backfill(runDate string) error {
	day, err := time.ParseInLocation("20060102", runDate, s.windows.Loc)
	if err != nil {
		return fmt.Errorf("backfill date %q: %w", runDate, err)
	}

	cycles, err := s.archive.ListCycles(runDate)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		return fmt.Errorf("backfill: no archived cycles for %s", runDate)
	}
	sort.Strings(cycles)
	runHour := cycles[len(cycles)-1]
	cycleTime, err := time.Parse("20060102 15", fmt.Sprintf("%s %s", runDate, runHour))
	if err != nil {
		return fmt.Errorf("backfill cycle %q: %w", runHour, err)
	}

	// Windows are resolved as seen from midday of the archived date.
	hours, err := s.forecastHours(day.Add(12*time.Hour), cycleTime)
	if err != nil {
		return err
	}

	m := &Manifest{
		Source:    "gfs-archive",
		RunDate:   runDate,
		RunHour:   runHour,
		FetchedAt: time.Now().UTC(),
		Files:     map[string]string{},
	}
	for h := range hours {
		data, err := s.archive.FetchHistorical(runDate, runHour, h)
		if err != nil {
			log.Printf("scheduler: archive f%03d: %v", h, err)
			continue
		}
		if err := os.MkdirAll(s.dataDir, 0755); err != nil {
			return err
		}
		path := filepath.Join(s.dataDir, fmt.Sprintf("gfs_%s_t%sz_f%03d.grib2", runDate, runHour, h))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		m.Files[fmt.Sprintf("f%03d", h)] = path
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("backfill %s: no files fetched", m.RunKey())
	}

	if err := WriteManifest(s.dataDir, m); err != nil {
		return err
	}
	manifestJSON, _ := json.Marshal(m)
	if err := s.store.UpsertRun(store.ForecastRun{
		Source: "gfs-archive", RunKey: m.RunKey(), FetchedAt: m.FetchedAt, ManifestJSON: string(manifestJSON),
	}); err != nil {
		return err
	}
	return s.source.Reload()
}

func (s *Scheduler) computeAll() {
	for _, ev := range models.Events {
		if err := s.ComputeEvent(ev, time.Now()); err != nil {
			log.Printf("scheduler: compute %s: %v", ev, err)
			metrics.ScoreRunsTotal.WithLabelValues(string(ev), "error").Inc()
			continue
		}
		metrics.ScoreRunsTotal.WithLabelValues(string(ev), "ok").Inc()
	}
}

// ComputeEvent scores every instant in the event window, composites
// them, post-processes, renders, and records the result.
func (s *Scheduler) ComputeEvent(event models.Event, now time.Time) error {
	start := time.Now()
	instants, err := s.windows.Resolve(event, now)
	if err != nil {
		return err
	}

	var fields []*score.ScoreField
	var masks []*grid.Mask
	for _, t := range instants {
		snap, err := s.source.Snapshot(event, t)
		if err != nil {
			log.Printf("scheduler: %s at %s: %v", event, t.Format(time.RFC3339), err)
			continue
		}
		if !s.useAOD && snap.AOD != nil {
			snap = stripAOD(snap)
		}
		sf, err := s.scorer.ScoreSnapshot(snap, t)
		if err != nil {
			return err
		}
		fields = append(fields, sf)
		masks = append(masks, astro.VisibilityMask(event, snap.Geom(), t, s.band))
	}
	if len(fields) == 0 {
		return fmt.Errorf("no snapshots available for %s", event)
	}

	composite, err := score.CompositeEvent(fields, masks)
	if err != nil {
		return err
	}
	post, err := score.PostProcess(composite, unionMasks(masks), s.post)
	if err != nil {
		return err
	}

	// The post stage already resampled; render at native resolution.
	pngData, err := render.EncodePNG(post.Score, 1)
	if err != nil {
		return err
	}
	if err := s.cache.SetImage(event, pngData); err != nil {
		return err
	}
	fieldJSON, err := MarshalScoreField(event, post)
	if err != nil {
		return err
	}
	if err := s.cache.SetField(event, fieldJSON); err != nil {
		return err
	}

	runKey := "adhoc"
	if run, err := s.store.LatestRun("gfs"); err == nil && run != nil {
		runKey = run.RunKey
	}
	stats := post.Score.Summarize()
	if err := s.store.UpsertComposite(store.CompositeRecord{
		RunKey:     runKey,
		Event:      event,
		ComputedAt: time.Now().UTC(),
		Instants:   len(fields),
		CellsValid: stats.Valid,
		ScoreMin:   sql.NullFloat64{Float64: stats.Min, Valid: stats.Valid > 0},
		ScoreMax:   sql.NullFloat64{Float64: stats.Max, Valid: stats.Valid > 0},
		ScoreMean:  sql.NullFloat64{Float64: stats.Mean, Valid: stats.Valid > 0},
		WithAOD:    s.useAOD,
	}); err != nil {
		return err
	}

	metrics.ScoreDuration.Observe(time.Since(start).Seconds())
	log.Printf("scheduler: %s composite from %d instants, %d valid cells, max %.1f",
		event, len(fields), stats.Valid, stats.Max)
	return nil
}

func stripAOD(snap *grid.Snapshot) *grid.Snapshot {
	out, err := grid.NewSnapshot(snap.Time, snap.HCC, snap.MCC, snap.LCC, snap.TCC, snap.CloudBase, nil)
	if err != nil {
		return snap
	}
	return out
}

// unionMasks marks a cell visible when any instant saw it: the clip
// region of a composite is the union of the per-instant bands.
func unionMasks(masks []*grid.Mask) *grid.Mask {
	if len(masks) == 0 {
		return nil
	}
	out := grid.NewMask(masks[0].Geom)
	for i := 0; i < out.Geom.Rows; i++ {
		for j := 0; j < out.Geom.Cols; j++ {
			for _, m := range masks {
				if m.At(i, j) {
					out.Set(i, j, true)
					break
				}
			}
		}
	}
	return out
}

// scoreFieldDoc is the serialized form served by the map JSON endpoint.
type scoreFieldDoc struct {
	Event      string       `json:"event"`
	ValidTime  time.Time    `json:"valid_time"`
	ComputedAt time.Time    `json:"computed_at"`
	Geometry   geometryJSON `json:"geometry"`
	Scores     []*float64   `json:"scores"` // row-major, null = outside visibility region
}

// MarshalScoreField serializes a post-processed field for the API.
func MarshalScoreField(event models.Event, sf *score.ScoreField) ([]byte, error) {
	geom := sf.Score.Geom
	doc := scoreFieldDoc{
		Event:      string(event),
		ValidTime:  sf.Time,
		ComputedAt: time.Now().UTC(),
		Geometry: geometryJSON{
			LatMin: geom.LatMin, LonMin: geom.LonMin,
			LatStep: geom.LatStep, LonStep: geom.LonStep,
			Rows: geom.Rows, Cols: geom.Cols,
		},
		Scores: make([]*float64, geom.Rows*geom.Cols),
	}
	for i := 0; i < geom.Rows; i++ {
		for j := 0; j < geom.Cols; j++ {
			if v, ok := sf.Score.At(i, j); ok {
				vc := v
				doc.Scores[i*geom.Cols+j] = &vc
			}
		}
	}
	return json.Marshal(doc)
}
