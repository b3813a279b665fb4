package score

import (
	"database/sql"

	"chromasky/internal/astro"
	"chromasky/internal/grid"
)

// SampleMode selects how off-grid path points are read from the field.
type SampleMode int

const (
	// SampleNearest reads the nearest grid cell. This matches the
	// behavior score maps have historically been produced with and is
	// the default.
	SampleNearest SampleMode = iota
	// SampleBilinear interpolates the four surrounding cells, which
	// softens scores near coastlines and grid edges.
	SampleBilinear
)

// PathSampler reads total cloud cover along the great-circle bearing
// toward the sun and reduces it to a single mean. All knobs are
// explicit so the sampling geometry is never buried in the loop.
type PathSampler struct {
	Samples    int        // number of evenly spaced points, default 5
	DistanceKM float64    // outer edge of the sampled band, default 450
	Mode       SampleMode // nearest or bilinear
}

// DefaultPathSampler is the documented sampling geometry: five points
// spread over the 450 km toward the sun.
var DefaultPathSampler = PathSampler{Samples: 5, DistanceKM: 450, Mode: SampleNearest}

func (p PathSampler) samples() int {
	if p.Samples <= 0 {
		return DefaultPathSampler.Samples
	}
	return p.Samples
}

func (p PathSampler) distance() float64 {
	if p.DistanceKM <= 0 {
		return DefaultPathSampler.DistanceKM
	}
	return p.DistanceKM
}

// AverageTCC samples tcc at evenly spaced points along the bearing
// azimuth from (lat, lon) out to the configured distance and returns
// the arithmetic mean. Points outside the grid bounding box (and
// missing cells) are excluded; with no usable sample the result is
// invalid and factor B takes its worst case.
func (p PathSampler) AverageTCC(tcc *grid.Field, lat, lon, azimuth float64) sql.NullFloat64 {
	n := p.samples()
	dist := p.distance()

	var sum float64
	var count int
	for i := 1; i <= n; i++ {
		d := float64(i) / float64(n) * dist
		sLat, sLon := astro.DestinationPoint(lat, lon, azimuth, d)

		var v float64
		var ok bool
		if p.Mode == SampleBilinear {
			v, ok = tcc.SampleBilinear(sLat, sLon)
		} else {
			v, ok = tcc.SampleNearest(sLat, sLon)
		}
		if !ok {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: sum / float64(count), Valid: true}
}
