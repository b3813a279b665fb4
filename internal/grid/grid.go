// Package grid holds the regular lat/lon fields the scoring engine
// operates on. Missing values are kept behind the Field API so callers
// never do arithmetic on a raw sentinel.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// ErrGridMismatch is returned when fields that must share grid
// geometry do not. It indicates a caller contract violation and is
// never recovered from internally.
var ErrGridMismatch = errors.New("grid geometry mismatch")

// Geometry describes a regular latitude/longitude grid.
// Latitudes run south to north, longitudes west to east in [0, 360).
type Geometry struct {
	LatMin  float64
	LonMin  float64
	LatStep float64
	LonStep float64
	Rows    int
	Cols    int
}

func (g Geometry) LatMax() float64 { return g.LatMin + float64(g.Rows-1)*g.LatStep }
func (g Geometry) LonMax() float64 { return g.LonMin + float64(g.Cols-1)*g.LonStep }

// Lat returns the latitude of row i.
func (g Geometry) Lat(i int) float64 { return g.LatMin + float64(i)*g.LatStep }

// Lon returns the longitude of column j.
func (g Geometry) Lon(j int) float64 { return g.LonMin + float64(j)*g.LonStep }

// Equal reports whether two geometries describe the same grid.
func (g Geometry) Equal(o Geometry) bool {
	const eps = 1e-9
	return g.Rows == o.Rows && g.Cols == o.Cols &&
		math.Abs(g.LatMin-o.LatMin) < eps &&
		math.Abs(g.LonMin-o.LonMin) < eps &&
		math.Abs(g.LatStep-o.LatStep) < eps &&
		math.Abs(g.LonStep-o.LonStep) < eps
}

// Contains reports whether (lat, lon) falls inside the grid bounding box.
func (g Geometry) Contains(lat, lon float64) bool {
	lon = NormalizeLon(lon)
	return lat >= g.LatMin && lat <= g.LatMax() &&
		lon >= g.LonMin && lon <= g.LonMax()
}

// NormalizeLon maps a longitude in [-180, 180] onto the [0, 360) GFS convention.
func NormalizeLon(lon float64) float64 {
	if lon < 0 {
		lon += 360
	}
	return lon
}

// Field is a 2-D scalar field on a regular grid. Cells are either a
// finite value or missing; missing is represented internally by NaN
// and only exposed through the (value, ok) accessors.
type Field struct {
	Geom Geometry
	vals []float64
}

// NewField allocates a field with every cell missing.
func NewField(geom Geometry) *Field {
	vals := make([]float64, geom.Rows*geom.Cols)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return &Field{Geom: geom, vals: vals}
}

// NewUniform allocates a field with every cell set to v.
func NewUniform(geom Geometry, v float64) *Field {
	f := NewField(geom)
	for i := range f.vals {
		f.vals[i] = v
	}
	return f
}

func (f *Field) idx(i, j int) int { return i*f.Geom.Cols + j }

// At returns the value at (row, col) and whether it is present.
func (f *Field) At(i, j int) (float64, bool) {
	v := f.vals[f.idx(i, j)]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Set stores a value at (row, col). Non-finite values mark the cell missing.
func (f *Field) Set(i, j int, v float64) {
	if math.IsInf(v, 0) {
		v = math.NaN()
	}
	f.vals[f.idx(i, j)] = v
}

// SetMissing marks the cell at (row, col) as having no data.
func (f *Field) SetMissing(i, j int) {
	f.vals[f.idx(i, j)] = math.NaN()
}

// IsMissing reports whether the cell at (row, col) has no data.
func (f *Field) IsMissing(i, j int) bool {
	_, ok := f.At(i, j)
	return !ok
}

// Clone returns a deep copy of the field.
func (f *Field) Clone() *Field {
	c := &Field{Geom: f.Geom, vals: make([]float64, len(f.vals))}
	copy(c.vals, f.vals)
	return c
}

// nearestIdx returns the index of the grid line closest to v along an
// axis starting at min with the given step, clamped to [0, n).
func nearestIdx(v, min, step float64, n int) int {
	i := int(math.Round((v - min) / step))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// SampleNearest returns the value of the grid cell nearest to (lat, lon).
// Points outside the bounding box return ok=false.
func (f *Field) SampleNearest(lat, lon float64) (float64, bool) {
	if !f.Geom.Contains(lat, lon) {
		return 0, false
	}
	lon = NormalizeLon(lon)
	i := nearestIdx(lat, f.Geom.LatMin, f.Geom.LatStep, f.Geom.Rows)
	j := nearestIdx(lon, f.Geom.LonMin, f.Geom.LonStep, f.Geom.Cols)
	return f.At(i, j)
}

// SampleBilinear interpolates between the four surrounding grid cells.
// Missing corners are dropped and the remaining weights renormalized;
// if all four corners are missing, ok=false.
func (f *Field) SampleBilinear(lat, lon float64) (float64, bool) {
	if !f.Geom.Contains(lat, lon) {
		return 0, false
	}
	lon = NormalizeLon(lon)

	fi := (lat - f.Geom.LatMin) / f.Geom.LatStep
	fj := (lon - f.Geom.LonMin) / f.Geom.LonStep
	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	if i0 >= f.Geom.Rows-1 {
		i0 = f.Geom.Rows - 2
	}
	if j0 >= f.Geom.Cols-1 {
		j0 = f.Geom.Cols - 2
	}
	if i0 < 0 {
		i0 = 0
	}
	if j0 < 0 {
		j0 = 0
	}
	di := fi - float64(i0)
	dj := fj - float64(j0)

	var sum, wsum float64
	corners := [4]struct {
		i, j int
		w    float64
	}{
		{i0, j0, (1 - di) * (1 - dj)},
		{i0, j0 + 1, (1 - di) * dj},
		{i0 + 1, j0, di * (1 - dj)},
		{i0 + 1, j0 + 1, di * dj},
	}
	for _, c := range corners {
		if v, ok := f.At(c.i, c.j); ok {
			sum += v * c.w
			wsum += c.w
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// Stats summarizes the valid cells of a field.
type Stats struct {
	Valid int
	Min   float64
	Max   float64
	Mean  float64
}

// Summarize computes min/max/mean over the valid cells.
func (f *Field) Summarize() Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for i := 0; i < f.Geom.Rows; i++ {
		for j := 0; j < f.Geom.Cols; j++ {
			v, ok := f.At(i, j)
			if !ok {
				continue
			}
			s.Valid++
			sum += v
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
	}
	if s.Valid > 0 {
		s.Mean = sum / float64(s.Valid)
	} else {
		s.Min, s.Max = 0, 0
	}
	return s
}

// Mask is a boolean field on the same grid layout, used for
// per-instant visibility masking.
type Mask struct {
	Geom Geometry
	vis  []bool
}

// NewMask allocates a mask with every cell false.
func NewMask(geom Geometry) *Mask {
	return &Mask{Geom: geom, vis: make([]bool, geom.Rows*geom.Cols)}
}

func (m *Mask) At(i, j int) bool     { return m.vis[i*m.Geom.Cols+j] }
func (m *Mask) Set(i, j int, v bool) { m.vis[i*m.Geom.Cols+j] = v }

// CheckAligned returns ErrGridMismatch unless all geometries equal the first.
func CheckAligned(geoms ...Geometry) error {
	for i := 1; i < len(geoms); i++ {
		if !geoms[0].Equal(geoms[i]) {
			return fmt.Errorf("%w: field %d differs from field 0", ErrGridMismatch, i)
		}
	}
	return nil
}
