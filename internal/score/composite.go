package score

import (
	"fmt"

	"chromasky/internal/grid"
)

// CompositeEvent reduces the per-instant score fields of one event
// window to a single best-case field: at each cell, the maximum score
// across instants. The max (not the mean) is deliberate: one excellent
// moment in the window should not be diluted by mediocre ones.
//
// masks is optional; when non-nil it must have one mask per field, and
// a cell/instant pair whose mask is false is excluded from the max
// (treated as absent, not zero). A cell with no visible instant ends
// up missing in the composite. The per-factor diagnostic fields carry
// the factor values at the argmax instant.
func CompositeEvent(fields []*ScoreField, masks []*grid.Mask) (*ScoreField, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("composite: no score fields")
	}
	if masks != nil && len(masks) != len(fields) {
		return nil, fmt.Errorf("composite: %d masks for %d fields", len(masks), len(fields))
	}

	geoms := make([]grid.Geometry, 0, 2*len(fields))
	for _, f := range fields {
		geoms = append(geoms, f.Score.Geom)
	}
	for _, m := range masks {
		geoms = append(geoms, m.Geom)
	}
	if err := grid.CheckAligned(geoms...); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}

	geom := fields[0].Score.Geom
	out := &ScoreField{
		Time:   fields[0].Time,
		Score:  grid.NewField(geom),
		Canvas: grid.NewField(geom),
		Path:   grid.NewField(geom),
		Air:    grid.NewField(geom),
		Alt:    grid.NewField(geom),
	}

	for i := 0; i < geom.Rows; i++ {
		for j := 0; j < geom.Cols; j++ {
			best := -1
			var bestScore float64
			for k, f := range fields {
				if masks != nil && !masks[k].At(i, j) {
					continue
				}
				v, ok := f.Score.At(i, j)
				if !ok {
					continue
				}
				if best < 0 || v > bestScore {
					best, bestScore = k, v
				}
			}
			if best < 0 {
				continue // stays missing, not zero
			}
			src := fields[best]
			out.Score.Set(i, j, bestScore)
			copyCell(out.Canvas, src.Canvas, i, j)
			copyCell(out.Path, src.Path, i, j)
			copyCell(out.Air, src.Air, i, j)
			copyCell(out.Alt, src.Alt, i, j)
		}
	}
	return out, nil
}

func copyCell(dst, src *grid.Field, i, j int) {
	if v, ok := src.At(i, j); ok {
		dst.Set(i, j, v)
	}
}
