// Package score implements the four-factor afterglow index model, the
// along-azimuth light path sampler, whole-grid scoring, multi-instant
// max compositing and the clip/smooth post-processing stage.
package score

import (
	"database/sql"
	"time"

	"chromasky/internal/models"
)

// FactorConfig tunes the scoring model. The zero value is the default
// documented behavior.
type FactorConfig struct {
	// CanvasStep selects the hard 0.1/1.0 step form of factor A
	// instead of the default linear ramp below 20% canvas cloud.
	CanvasStep bool
	// DefaultAOD overrides the seasonal fallback for missing AOD
	// when > 0.
	DefaultAOD float64
}

// canvasThreshold is the canvas cloud percentage above which factor A
// saturates at 1.0.
const canvasThreshold = 20.0

// ScoreCanvas is factor A: how much high and medium cloud is available
// as a canvas for afterglow colors. Missing either layer yields the
// worst case 0, never an error.
func ScoreCanvas(hcc, mcc sql.NullFloat64, cfg FactorConfig) float64 {
	if !hcc.Valid || !mcc.Valid {
		return 0
	}
	canvas := clamp(hcc.Float64+mcc.Float64, 0, 100)
	if canvas >= canvasThreshold {
		return 1.0
	}
	if cfg.CanvasStep {
		return 0.1
	}
	// Linear ramp from 0.1 at zero cloud up to 1.0 at the threshold.
	return 0.1 + 0.9*canvas/canvasThreshold
}

// ScoreLightPath is factor B: how clear the light path toward the sun
// is. Input is the mean total cloud cover along the path in percent.
// A missing path average (no usable samples) scores 0.
func ScoreLightPath(avgTCC sql.NullFloat64) float64 {
	if !avgTCC.Valid {
		return 0
	}
	clarity := clamp((100-avgTCC.Float64)/100, 0, 1)
	return clarity * clarity
}

const (
	aodClear  = 0.2
	aodOpaque = 0.8
)

// ScoreAirQuality is factor C: aerosol loading. Below 0.2 optical
// depth the air is effectively clean, above 0.8 the horizon is murky;
// linear in between. Missing AOD falls back to a hemisphere/season
// climatological default rather than failing.
func ScoreAirQuality(aod sql.NullFloat64, lat float64, t time.Time, cfg FactorConfig) float64 {
	v := aod.Float64
	if !aod.Valid {
		v = defaultAOD(lat, t, cfg)
	}
	switch {
	case v < aodClear:
		return 1.0
	case v > aodOpaque:
		return 0.0
	default:
		return 1.0 - (v-aodClear)/(aodOpaque-aodClear)
	}
}

// Seasonal AOD climatology used when no forecast AOD is available.
// Spring dust and summer haze raise the northern hemisphere values.
var seasonalAOD = map[bool][4]float64{
	true:  {0.25, 0.35, 0.30, 0.25}, // northern: DJF, MAM, JJA, SON
	false: {0.15, 0.20, 0.15, 0.20}, // southern
}

func defaultAOD(lat float64, t time.Time, cfg FactorConfig) float64 {
	if cfg.DefaultAOD > 0 {
		return cfg.DefaultAOD
	}
	var season int
	switch t.UTC().Month() {
	case time.December, time.January, time.February:
		season = 0
	case time.March, time.April, time.May:
		season = 1
	case time.June, time.July, time.August:
		season = 2
	default:
		season = 3
	}
	return seasonalAOD[lat >= 0][season]
}

// Cloud base bands for factor D, meters. Inclusive on the lower bound.
const (
	highCloudBase = 6000.0
	midCloudBase  = 2500.0
)

// ScoreCloudAltitude is factor D: high cloud catches the light longest.
// Missing or non-finite cloud base means no detectable cloud layer and
// scores 0.
func ScoreCloudAltitude(base sql.NullFloat64) float64 {
	if !base.Valid {
		return 0
	}
	switch {
	case base.Float64 > highCloudBase:
		return 1.0
	case base.Float64 >= midCloudBase:
		return 0.7
	default:
		return 0.3
	}
}

// Composite combines the four factors into the 0-10 index. The model
// is strictly multiplicative: one bad factor sinks the score.
func Composite(a, b, c, d float64) float64 {
	return clamp(a*b*c*d*10, 0, 10)
}

// Combine builds a FactorScores from the four factor values.
func Combine(a, b, c, d float64) models.FactorScores {
	return models.FactorScores{
		Canvas:        a,
		LightPath:     b,
		AirQuality:    c,
		CloudAltitude: d,
		Index:         Composite(a, b, c, d),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
