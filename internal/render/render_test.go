package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"chromasky/internal/grid"
	"chromasky/internal/models"
)

func TestScoreColor(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  color.NRGBA
	}{
		{name: "below floor transparent", score: 1.9, want: color.NRGBA{}},
		{name: "zero transparent", score: 0, want: color.NRGBA{}},
		{name: "floor is blue", score: 2.0, want: color.NRGBA{0x3b, 0x82, 0xf6, 0xff}},
		{name: "ceiling is pink", score: 10.0, want: color.NRGBA{0xec, 0x48, 0x99, 0xff}},
		{name: "above ceiling clamps", score: 12.0, want: color.NRGBA{0xec, 0x48, 0x99, 0xff}},
		{name: "midpoint is yellow", score: 6.0, want: color.NRGBA{0xfd, 0xe0, 0x47, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreColor(tt.score); got != tt.want {
				t.Errorf("ScoreColor(%v) = %+v, want %+v", tt.score, got, tt.want)
			}
		})
	}
}

func TestScoreColorOpaqueAboveFloor(t *testing.T) {
	for s := DisplayFloor; s <= DisplayCeil; s += 0.25 {
		if c := ScoreColor(s); c.A != 0xff {
			t.Fatalf("ScoreColor(%v).A = %d, want opaque", s, c.A)
		}
	}
}

func TestHeatmap(t *testing.T) {
	g := grid.Geometry{LatMin: 30, LonMin: 110, LatStep: 0.5, LonStep: 0.5, Rows: 4, Cols: 6}
	f := grid.NewField(g)
	f.Set(3, 0, 9) // northernmost row, westernmost column

	img, err := Heatmap(f, 1)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if b.Dx() != 6 || b.Dy() != 4 {
		t.Fatalf("bounds = %v, want 6x4", b)
	}
	// The northernmost grid row lands at the top of the image.
	if _, _, _, a := img.At(0, 0).RGBA(); a == 0 {
		t.Error("set northern cell rendered transparent")
	}
	// Missing cells stay transparent.
	if _, _, _, a := img.At(3, 3).RGBA(); a != 0 {
		t.Error("missing cell rendered opaque")
	}

	scaled, err := Heatmap(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	if b := scaled.Bounds(); b.Dx() != 18 || b.Dy() != 12 {
		t.Errorf("scaled bounds = %v, want 18x12", b)
	}
}

func TestEncodePNG(t *testing.T) {
	g := grid.Geometry{LatMin: 30, LonMin: 110, LatStep: 0.5, LonStep: 0.5, Rows: 4, Cols: 4}
	data, err := EncodePNG(grid.NewUniform(g, 8), DefaultScale)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Errorf("decoded bounds = %v, want 16x16", b)
	}

	if _, err := EncodePNG(nil, 1); err == nil {
		t.Error("expected error for nil field")
	}
}

func TestCache(t *testing.T) {
	c := NewCache(t.TempDir())
	if _, ok := c.Image(models.EventTodaySunset); ok {
		t.Error("empty cache returned an image")
	}
	if err := c.SetImage(models.EventTodaySunset, []byte("png-bytes")); err != nil {
		t.Fatal(err)
	}
	if data, ok := c.Image(models.EventTodaySunset); !ok || string(data) != "png-bytes" {
		t.Errorf("Image = (%q, %v)", data, ok)
	}
	// Events do not share slots.
	if _, ok := c.Image(models.EventTomorrowSunset); ok {
		t.Error("image leaked across events")
	}

	if err := c.SetField(models.EventTodaySunset, []byte(`{"score":1}`)); err != nil {
		t.Fatal(err)
	}
	if data, ok := c.Field(models.EventTodaySunset); !ok || string(data) != `{"score":1}` {
		t.Errorf("Field = (%q, %v)", data, ok)
	}
}
