package score

import (
	"testing"
	"time"

	"chromasky/internal/grid"
)

func uniformSnapshot(t *testing.T, geom grid.Geometry, hcc, mcc, lcc, tcc, base, aod float64) *grid.Snapshot {
	t.Helper()
	snap, err := grid.NewSnapshot(
		time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		grid.NewUniform(geom, hcc),
		grid.NewUniform(geom, mcc),
		grid.NewUniform(geom, lcc),
		grid.NewUniform(geom, tcc),
		grid.NewUniform(geom, base),
		grid.NewUniform(geom, aod),
	)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

// TestScorePointScenario is the documented end-to-end case: canvas 25%
// gives A=1.0, a 20% cloud path gives B=0.64, AOD 0.2 gives C=1.0 and
// a 7000m cloud base gives D=1.0, for an index of 6.4.
func TestScorePointScenario(t *testing.T) {
	snap := uniformSnapshot(t, testGeom(), 15, 10, 0, 20, 7000, 0.2)
	s := NewScorer()

	fs, err := s.ScorePoint(snap, 35, 115, snap.Time)
	if err != nil {
		t.Fatalf("ScorePoint: %v", err)
	}
	if !approxEqual(fs.Canvas, 1.0, 1e-9) {
		t.Errorf("factor A = %v, want 1.0", fs.Canvas)
	}
	if !approxEqual(fs.LightPath, 0.64, 1e-9) {
		t.Errorf("factor B = %v, want 0.64", fs.LightPath)
	}
	if !approxEqual(fs.AirQuality, 1.0, 1e-9) {
		t.Errorf("factor C = %v, want 1.0", fs.AirQuality)
	}
	if fs.CloudAltitude != 1.0 {
		t.Errorf("factor D = %v, want 1.0", fs.CloudAltitude)
	}
	if !approxEqual(fs.Index, 6.4, 1e-9) {
		t.Errorf("index = %v, want 6.4", fs.Index)
	}
}

func TestScorePointOutsideGrid(t *testing.T) {
	snap := uniformSnapshot(t, testGeom(), 15, 10, 0, 20, 7000, 0.2)
	s := NewScorer()
	if _, err := s.ScorePoint(snap, -10, 10, snap.Time); err == nil {
		t.Fatal("expected error for point outside grid")
	}
}

func TestScoreSnapshotFullGrid(t *testing.T) {
	snap := uniformSnapshot(t, testGeom(), 15, 10, 0, 0, 7000, 0.1)
	s := NewScorer()
	s.Workers = 2

	sf, err := s.ScoreSnapshot(snap, snap.Time)
	if err != nil {
		t.Fatalf("ScoreSnapshot: %v", err)
	}

	// With a completely clear path everywhere, interior cells hit the
	// full 10.0; edge cells can lose path samples off-grid but only in
	// the direction away from the sun, so they are never higher.
	v, ok := sf.Score.At(10, 10)
	if !ok {
		t.Fatal("center cell missing")
	}
	if !approxEqual(v, 10.0, 1e-9) {
		t.Errorf("center score = %v, want 10.0", v)
	}

	stats := sf.Score.Summarize()
	if stats.Valid != snap.Geom().Rows*snap.Geom().Cols {
		t.Errorf("valid cells = %d, want %d", stats.Valid, snap.Geom().Rows*snap.Geom().Cols)
	}
	if stats.Max > 10.0 {
		t.Errorf("max score = %v above ceiling", stats.Max)
	}

	// Diagnostic factor fields come back alongside the score.
	if a, _ := sf.Canvas.At(3, 3); !approxEqual(a, 1.0, 1e-9) {
		t.Errorf("canvas field = %v, want 1.0", a)
	}
	if d, _ := sf.Alt.At(3, 3); d != 1.0 {
		t.Errorf("altitude field = %v, want 1.0", d)
	}
}

func TestScoreSnapshotMissingInputsAreWorstCaseNotNaN(t *testing.T) {
	geom := testGeom()
	hcc := grid.NewUniform(geom, 15)
	hcc.SetMissing(5, 5)
	base := grid.NewUniform(geom, 7000)
	base.SetMissing(6, 6)

	snap, err := grid.NewSnapshot(time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		hcc, grid.NewUniform(geom, 10), grid.NewUniform(geom, 0),
		grid.NewUniform(geom, 0), base, grid.NewUniform(geom, 0.1))
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	sf, err := NewScorer().ScoreSnapshot(snap, snap.Time)
	if err != nil {
		t.Fatalf("ScoreSnapshot: %v", err)
	}

	// Missing canvas input zeroes factor A for that cell only; the
	// score is a defined 0, not a missing cell.
	if v, ok := sf.Score.At(5, 5); !ok || v != 0 {
		t.Errorf("score at missing-hcc cell = (%v, %v), want (0, true)", v, ok)
	}
	if v, ok := sf.Score.At(6, 6); !ok || v != 0 {
		t.Errorf("score at missing-base cell = (%v, %v), want (0, true)", v, ok)
	}
	if v, ok := sf.Score.At(10, 10); !ok || v <= 0 {
		t.Errorf("unaffected cell = (%v, %v), want positive", v, ok)
	}
}

func TestScoreSnapshotNoAOD(t *testing.T) {
	geom := testGeom()
	snap, err := grid.NewSnapshot(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		grid.NewUniform(geom, 15), grid.NewUniform(geom, 10), grid.NewUniform(geom, 0),
		grid.NewUniform(geom, 0), grid.NewUniform(geom, 7000), nil)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	sf, err := NewScorer().ScoreSnapshot(snap, snap.Time)
	if err != nil {
		t.Fatalf("ScoreSnapshot: %v", err)
	}
	// Northern winter default AOD is 0.25, on the linear segment.
	want := 1.0 - (0.25-0.2)/0.6
	if c, _ := sf.Air.At(10, 10); !approxEqual(c, want, 1e-9) {
		t.Errorf("air factor without AOD = %v, want %v", c, want)
	}
}
