package render

import "image/color"

// The published score maps use a five-stop ramp over the visible score
// range: blue through yellow and orange into red and pink. Scores
// below DisplayFloor are not drawn at all.
const (
	DisplayFloor = 2.0
	DisplayCeil  = 10.0
)

type stop struct {
	pos float64 // 0..1 across the displayed range
	c   color.NRGBA
}

var rampStops = []stop{
	{0.00, color.NRGBA{0x3b, 0x82, 0xf6, 0xff}},
	{0.50, color.NRGBA{0xfd, 0xe0, 0x47, 0xff}},
	{0.70, color.NRGBA{0xf9, 0x73, 0x16, 0xff}},
	{0.85, color.NRGBA{0xef, 0x44, 0x44, 0xff}},
	{1.00, color.NRGBA{0xec, 0x48, 0x99, 0xff}},
}

// ScoreColor maps an index value to its ramp color. Values below the
// display floor are fully transparent.
func ScoreColor(score float64) color.NRGBA {
	if score < DisplayFloor {
		return color.NRGBA{}
	}
	t := (score - DisplayFloor) / (DisplayCeil - DisplayFloor)
	if t > 1 {
		t = 1
	}
	for i := 1; i < len(rampStops); i++ {
		if t <= rampStops[i].pos {
			lo, hi := rampStops[i-1], rampStops[i]
			f := (t - lo.pos) / (hi.pos - lo.pos)
			return lerp(lo.c, hi.c, f)
		}
	}
	return rampStops[len(rampStops)-1].c
}

func lerp(a, b color.NRGBA, f float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5)
	}
	return color.NRGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), mix(a.A, b.A)}
}
