package score

import (
	"database/sql"
	"fmt"
	"runtime"
	"sync"
	"time"

	"chromasky/internal/astro"
	"chromasky/internal/grid"
	"chromasky/internal/models"
)

// ScoreField is one evaluated index field plus the per-factor fields
// that produced it, kept for diagnostics. It is immutable once built.
type ScoreField struct {
	Time   time.Time
	Score  *grid.Field
	Canvas *grid.Field // factor A
	Path   *grid.Field // factor B
	Air    *grid.Field // factor C
	Alt    *grid.Field // factor D
}

// Scorer evaluates the four-factor model over grids and points.
type Scorer struct {
	Path    PathSampler
	Factors FactorConfig
	// Workers bounds the goroutines used for per-cell path sampling.
	// Zero means one per CPU.
	Workers int
}

// NewScorer returns a scorer with the documented default sampling
// geometry and factor model.
func NewScorer() *Scorer {
	return &Scorer{Path: DefaultPathSampler}
}

func (s *Scorer) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

func cellValue(f *grid.Field, i, j int) sql.NullFloat64 {
	v, ok := f.At(i, j)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

// ScoreSnapshot evaluates the index for every cell of the snapshot at
// the given instant. Factors A, C and D are a single pass over the
// fields; factor B runs the path sampler per cell across a worker
// pool, each cell writing only its own output slot.
func (s *Scorer) ScoreSnapshot(snap *grid.Snapshot, t time.Time) (*ScoreField, error) {
	if snap == nil {
		return nil, fmt.Errorf("score snapshot: nil snapshot")
	}
	geom := snap.Geom()

	out := &ScoreField{
		Time:   t,
		Score:  grid.NewField(geom),
		Canvas: grid.NewField(geom),
		Path:   grid.NewField(geom),
		Air:    grid.NewField(geom),
		Alt:    grid.NewField(geom),
	}

	// Factors A, C, D have no cross-cell dependency.
	for i := 0; i < geom.Rows; i++ {
		lat := geom.Lat(i)
		for j := 0; j < geom.Cols; j++ {
			out.Canvas.Set(i, j, ScoreCanvas(cellValue(snap.HCC, i, j), cellValue(snap.MCC, i, j), s.Factors))
			var aod sql.NullFloat64
			if snap.AOD != nil {
				aod = cellValue(snap.AOD, i, j)
			}
			out.Air.Set(i, j, ScoreAirQuality(aod, lat, t, s.Factors))
			out.Alt.Set(i, j, ScoreCloudAltitude(cellValue(snap.CloudBase, i, j)))
		}
	}

	// Factor B: independent path integrals, parallel by row.
	rows := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				lat := geom.Lat(i)
				for j := 0; j < geom.Cols; j++ {
					az := astro.SolarPosition(lat, geom.Lon(j), t).Azimuth
					avg := s.Path.AverageTCC(snap.TCC, lat, geom.Lon(j), az)
					out.Path.Set(i, j, ScoreLightPath(avg))
				}
			}
		}()
	}
	for i := 0; i < geom.Rows; i++ {
		rows <- i
	}
	close(rows)
	wg.Wait()

	for i := 0; i < geom.Rows; i++ {
		for j := 0; j < geom.Cols; j++ {
			a, _ := out.Canvas.At(i, j)
			b, _ := out.Path.At(i, j)
			c, _ := out.Air.At(i, j)
			d, _ := out.Alt.At(i, j)
			out.Score.Set(i, j, Composite(a, b, c, d))
		}
	}
	return out, nil
}

// ScorePoint evaluates the model for a single location, bypassing the
// full-grid path. Used for point queries from the API.
func (s *Scorer) ScorePoint(snap *grid.Snapshot, lat, lon float64, t time.Time) (models.FactorScores, error) {
	if snap == nil {
		return models.FactorScores{}, fmt.Errorf("score point: nil snapshot")
	}
	if !snap.Geom().Contains(lat, lon) {
		return models.FactorScores{}, fmt.Errorf("score point: (%.3f, %.3f) outside grid", lat, lon)
	}

	sample := func(f *grid.Field) sql.NullFloat64 {
		if f == nil {
			return sql.NullFloat64{}
		}
		var v float64
		var ok bool
		if s.Path.Mode == SampleBilinear {
			v, ok = f.SampleBilinear(lat, lon)
		} else {
			v, ok = f.SampleNearest(lat, lon)
		}
		return sql.NullFloat64{Float64: v, Valid: ok}
	}

	a := ScoreCanvas(sample(snap.HCC), sample(snap.MCC), s.Factors)
	c := ScoreAirQuality(sample(snap.AOD), lat, t, s.Factors)
	d := ScoreCloudAltitude(sample(snap.CloudBase))

	az := astro.SolarPosition(lat, lon, t).Azimuth
	b := ScoreLightPath(s.Path.AverageTCC(snap.TCC, lat, lon, az))

	return Combine(a, b, c, d), nil
}
