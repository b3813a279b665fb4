// Package render turns post-processed score fields into PNG heatmaps
// and caches them for the HTTP layer.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"chromasky/internal/grid"
)

// DefaultScale is the upscale factor applied when rasterizing, which
// keeps map tiles crisp independent of the source grid resolution.
const DefaultScale = 4

// Heatmap rasterizes a score field. Missing cells stay transparent so
// the map background shows through outside the visibility region.
// The raster is upscaled with Catmull-Rom resampling.
func Heatmap(f *grid.Field, scale int) (image.Image, error) {
	if f == nil {
		return nil, fmt.Errorf("render: nil field")
	}
	if scale < 1 {
		scale = 1
	}
	geom := f.Geom

	src := image.NewNRGBA(image.Rect(0, 0, geom.Cols, geom.Rows))
	for i := 0; i < geom.Rows; i++ {
		// Row 0 of the image is the northernmost latitude.
		y := geom.Rows - 1 - i
		for j := 0; j < geom.Cols; j++ {
			v, ok := f.At(i, j)
			if !ok {
				continue
			}
			src.SetNRGBA(j, y, ScoreColor(v))
		}
	}
	if scale == 1 {
		return src, nil
	}

	dst := image.NewNRGBA(image.Rect(0, 0, geom.Cols*scale, geom.Rows*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst, nil
}

// EncodePNG rasterizes and PNG-encodes a field in one step.
func EncodePNG(f *grid.Field, scale int) ([]byte, error) {
	img, err := Heatmap(f, scale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
