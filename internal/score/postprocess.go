package score

import (
	"fmt"
	"math"

	"chromasky/internal/grid"
)

// PostConfig controls the clip/smooth/resample stage that prepares a
// composite field for rendering.
type PostConfig struct {
	// ClipEnabled drops cells outside the event visibility region.
	ClipEnabled bool
	// SmoothingSigma is the Gaussian kernel width in grid cells.
	// Zero disables smoothing. Score maps are produced with 1.5.
	SmoothingSigma float64
	// UpsampleFactor multiplies the output resolution. Values below 2
	// leave the grid unchanged.
	UpsampleFactor int
}

// DefaultPostConfig matches the published score maps.
var DefaultPostConfig = PostConfig{ClipEnabled: true, SmoothingSigma: 1.5, UpsampleFactor: 4}

// PostProcess clips a composite field to the visibility region,
// smooths it, and optionally resamples to a higher output resolution.
// Missing cells never leak into valid neighbors: the smoothing kernel
// renormalizes over the cells that have data, and clipped cells stay
// missing rather than becoming zero.
func PostProcess(sf *ScoreField, clip *grid.Mask, cfg PostConfig) (*ScoreField, error) {
	if sf == nil {
		return nil, fmt.Errorf("postprocess: nil field")
	}
	field := sf.Score.Clone()

	if cfg.ClipEnabled && clip != nil {
		if !clip.Geom.Equal(field.Geom) {
			return nil, fmt.Errorf("postprocess: %w", grid.ErrGridMismatch)
		}
		for i := 0; i < field.Geom.Rows; i++ {
			for j := 0; j < field.Geom.Cols; j++ {
				if !clip.At(i, j) {
					field.SetMissing(i, j)
				}
			}
		}
	}

	if cfg.SmoothingSigma > 0 {
		field = gaussianSmooth(field, cfg.SmoothingSigma)
	}

	if cfg.UpsampleFactor >= 2 {
		field = upsample(field, cfg.UpsampleFactor)
	}

	return &ScoreField{
		Time:   sf.Time,
		Score:  field,
		Canvas: sf.Canvas,
		Path:   sf.Path,
		Air:    sf.Air,
		Alt:    sf.Alt,
	}, nil
}

// gaussianKernel builds a normalized 1-D kernel truncated at 3 sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		d := float64(i - radius)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianSmooth applies a separable Gaussian blur. Missing cells are
// excluded from the kernel input and the remaining weights
// renormalized, so data never bleeds across the clip boundary and
// missing cells remain missing.
func gaussianSmooth(f *grid.Field, sigma float64) *grid.Field {
	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	geom := f.Geom

	pass := func(src *grid.Field, vertical bool) *grid.Field {
		dst := grid.NewField(geom)
		for i := 0; i < geom.Rows; i++ {
			for j := 0; j < geom.Cols; j++ {
				if src.IsMissing(i, j) {
					continue
				}
				var sum, wsum float64
				for t := -radius; t <= radius; t++ {
					ii, jj := i, j
					if vertical {
						ii += t
					} else {
						jj += t
					}
					if ii < 0 || ii >= geom.Rows || jj < 0 || jj >= geom.Cols {
						continue
					}
					v, ok := src.At(ii, jj)
					if !ok {
						continue
					}
					w := kernel[t+radius]
					sum += v * w
					wsum += w
				}
				if wsum > 0 {
					dst.Set(i, j, sum/wsum)
				}
			}
		}
		return dst
	}

	return pass(pass(f, false), true)
}

// upsample resamples the field onto a grid with factor times the
// resolution over the same bounding box, interpolating bilinearly
// between valid cells.
func upsample(f *grid.Field, factor int) *grid.Field {
	src := f.Geom
	dst := grid.Geometry{
		LatMin:  src.LatMin,
		LonMin:  src.LonMin,
		LatStep: src.LatStep * float64(src.Rows-1) / float64(src.Rows*factor-1),
		LonStep: src.LonStep * float64(src.Cols-1) / float64(src.Cols*factor-1),
		Rows:    src.Rows * factor,
		Cols:    src.Cols * factor,
	}
	out := grid.NewField(dst)
	for i := 0; i < dst.Rows; i++ {
		lat := dst.Lat(i)
		for j := 0; j < dst.Cols; j++ {
			// A target cell is only populated when its nearest source
			// cell has data, so the clip boundary stays sharp.
			if _, ok := f.SampleNearest(lat, dst.Lon(j)); !ok {
				continue
			}
			if v, ok := f.SampleBilinear(lat, dst.Lon(j)); ok {
				out.Set(i, j, v)
			}
		}
	}
	return out
}
