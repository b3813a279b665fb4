package grid

import (
	"math"
	"testing"
	"time"
)

func testGeom() Geometry {
	return Geometry{LatMin: 30, LonMin: 110, LatStep: 0.5, LonStep: 0.5, Rows: 11, Cols: 11}
}

func TestGeometryBounds(t *testing.T) {
	g := testGeom()
	if g.LatMax() != 35 {
		t.Errorf("LatMax = %v, want 35", g.LatMax())
	}
	if g.LonMax() != 115 {
		t.Errorf("LonMax = %v, want 115", g.LonMax())
	}
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{name: "center", lat: 32.5, lon: 112.5, want: true},
		{name: "corner", lat: 30, lon: 110, want: true},
		{name: "north of box", lat: 35.1, lon: 112, want: false},
		{name: "west of box", lat: 32, lon: 109.9, want: false},
		{name: "negative lon convention", lat: 32, lon: -247.5, want: true}, // -247.5 == 112.5
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Contains(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestGeometryEqual(t *testing.T) {
	a := testGeom()
	b := testGeom()
	if !a.Equal(b) {
		t.Error("identical geometries not equal")
	}
	b.LonStep = 0.25
	if a.Equal(b) {
		t.Error("different geometries reported equal")
	}
}

func TestFieldMissingHandling(t *testing.T) {
	f := NewField(testGeom())
	if !f.IsMissing(0, 0) {
		t.Error("new field cell should start missing")
	}
	f.Set(0, 0, 42)
	if v, ok := f.At(0, 0); !ok || v != 42 {
		t.Errorf("At = (%v, %v), want (42, true)", v, ok)
	}
	f.SetMissing(0, 0)
	if !f.IsMissing(0, 0) {
		t.Error("SetMissing did not clear the cell")
	}
	// Non-finite writes become missing rather than poisoning sums.
	f.Set(1, 1, math.Inf(1))
	if !f.IsMissing(1, 1) {
		t.Error("infinite value stored as data")
	}
	f.Set(2, 2, math.NaN())
	if !f.IsMissing(2, 2) {
		t.Error("NaN stored as data")
	}
}

func TestSampleNearest(t *testing.T) {
	f := NewField(testGeom())
	f.Set(4, 4, 7) // lat 32, lon 112

	if v, ok := f.SampleNearest(32.1, 112.2); !ok || v != 7 {
		t.Errorf("SampleNearest near cell = (%v, %v), want 7", v, ok)
	}
	if _, ok := f.SampleNearest(32.3, 112.3); ok {
		t.Error("SampleNearest should be missing away from the set cell")
	}
	if _, ok := f.SampleNearest(50, 112); ok {
		t.Error("SampleNearest outside bbox should be missing")
	}
}

func TestSampleBilinear(t *testing.T) {
	g := Geometry{LatMin: 0, LonMin: 0, LatStep: 1, LonStep: 1, Rows: 2, Cols: 2}
	f := NewField(g)
	f.Set(0, 0, 0)
	f.Set(0, 1, 10)
	f.Set(1, 0, 20)
	f.Set(1, 1, 30)

	if v, ok := f.SampleBilinear(0.5, 0.5); !ok || v != 15 {
		t.Errorf("center bilinear = (%v, %v), want 15", v, ok)
	}
	if v, ok := f.SampleBilinear(0, 0.5); !ok || v != 5 {
		t.Errorf("edge bilinear = (%v, %v), want 5", v, ok)
	}

	// Missing corners are dropped and weights renormalized.
	f.SetMissing(1, 1)
	v, ok := f.SampleBilinear(0.5, 0.5)
	if !ok {
		t.Fatal("bilinear with one missing corner should still resolve")
	}
	want := (0*0.25 + 10*0.25 + 20*0.25) / 0.75
	if math.Abs(v-want) > 1e-9 {
		t.Errorf("renormalized bilinear = %v, want %v", v, want)
	}

	f.SetMissing(0, 0)
	f.SetMissing(0, 1)
	f.SetMissing(1, 0)
	if _, ok := f.SampleBilinear(0.5, 0.5); ok {
		t.Error("bilinear with all corners missing should be missing")
	}
}

func TestSummarize(t *testing.T) {
	f := NewField(Geometry{LatMin: 0, LonMin: 0, LatStep: 1, LonStep: 1, Rows: 2, Cols: 2})
	f.Set(0, 0, 2)
	f.Set(1, 1, 8)

	s := f.Summarize()
	if s.Valid != 2 || s.Min != 2 || s.Max != 8 || s.Mean != 5 {
		t.Errorf("Summarize = %+v", s)
	}

	empty := NewField(testGeom()).Summarize()
	if empty.Valid != 0 || empty.Min != 0 || empty.Max != 0 {
		t.Errorf("empty Summarize = %+v", empty)
	}
}

func TestNewSnapshotGridMismatch(t *testing.T) {
	g := testGeom()
	other := testGeom()
	other.LatStep = 0.25
	other.Rows = 21

	_, err := NewSnapshot(time.Now(),
		NewUniform(g, 1), NewUniform(g, 1), NewUniform(g, 1),
		NewUniform(other, 1), NewUniform(g, 1), nil)
	if err == nil {
		t.Fatal("expected grid mismatch")
	}

	snap, err := NewSnapshot(time.Now(),
		NewUniform(g, 1), NewUniform(g, 1), NewUniform(g, 1),
		NewUniform(g, 1), NewUniform(g, 1), nil)
	if err != nil {
		t.Fatalf("aligned snapshot rejected: %v", err)
	}
	if snap.AOD != nil {
		t.Error("nil AOD should stay nil")
	}
}

func TestNewSnapshotRequiredFields(t *testing.T) {
	g := testGeom()
	_, err := NewSnapshot(time.Now(), nil, NewUniform(g, 1), NewUniform(g, 1),
		NewUniform(g, 1), NewUniform(g, 1), nil)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
}
