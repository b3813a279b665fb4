package score

import (
	"testing"

	"chromasky/internal/grid"
)

// testGeom spans 30-40N, 110-120E at half-degree spacing, wide enough
// that a full 450 km path from the center stays inside.
func testGeom() grid.Geometry {
	return grid.Geometry{LatMin: 30, LonMin: 110, LatStep: 0.5, LonStep: 0.5, Rows: 21, Cols: 21}
}

func TestAverageTCCUniformField(t *testing.T) {
	tests := []struct {
		name string
		tcc  float64
		mode SampleMode
		want float64
	}{
		{name: "fully clear nearest", tcc: 0, mode: SampleNearest, want: 0},
		{name: "fully overcast nearest", tcc: 100, mode: SampleNearest, want: 100},
		{name: "fully clear bilinear", tcc: 0, mode: SampleBilinear, want: 0},
		{name: "partial bilinear", tcc: 20, mode: SampleBilinear, want: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := grid.NewUniform(testGeom(), tt.tcc)
			p := PathSampler{Samples: 5, DistanceKM: 450, Mode: tt.mode}
			got := p.AverageTCC(field, 35, 115, 270)
			if !got.Valid {
				t.Fatal("AverageTCC returned invalid for in-grid path")
			}
			if !approxEqual(got.Float64, tt.want, 1e-9) {
				t.Errorf("AverageTCC = %v, want %v", got.Float64, tt.want)
			}
		})
	}
}

func TestAverageTCCExcludesOutOfBounds(t *testing.T) {
	field := grid.NewUniform(testGeom(), 50)
	p := DefaultPathSampler

	// From the western edge looking further west, every sample leaves
	// the bounding box.
	got := p.AverageTCC(field, 35, 110, 270)
	if got.Valid {
		t.Errorf("AverageTCC from edge looking out = %v, want invalid", got.Float64)
	}

	// Looking east from the same spot stays inside.
	got = p.AverageTCC(field, 35, 110, 90)
	if !got.Valid || got.Float64 != 50 {
		t.Errorf("AverageTCC looking inward = %+v, want 50", got)
	}
}

func TestAverageTCCSkipsMissingCells(t *testing.T) {
	geom := testGeom()
	field := grid.NewUniform(geom, 40)
	// Punch out the cells just east of the observer; remaining samples
	// still produce the mean of what's left.
	for i := 0; i < geom.Rows; i++ {
		for j := 10; j <= 12; j++ {
			field.SetMissing(i, j)
		}
	}
	p := DefaultPathSampler
	got := p.AverageTCC(field, 35, 115, 90)
	if !got.Valid {
		t.Fatal("expected at least one valid sample past the gap")
	}
	if got.Float64 != 40 {
		t.Errorf("AverageTCC = %v, want 40", got.Float64)
	}
}

func TestPathSamplerDefaults(t *testing.T) {
	var p PathSampler
	if p.samples() != 5 {
		t.Errorf("zero-value sample count = %d, want 5", p.samples())
	}
	if p.distance() != 450 {
		t.Errorf("zero-value distance = %v, want 450", p.distance())
	}
}
