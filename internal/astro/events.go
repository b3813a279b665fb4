package astro

import (
	"errors"
	"time"

	"chromasky/internal/grid"
	"chromasky/internal/models"
)

// EventHorizon is the solar altitude defining sunrise and sunset,
// accounting for refraction and the solar disc radius.
const EventHorizon = -0.833

// ErrNoEvent is returned when the requested event does not occur at a
// location within the search window (polar day or polar night).
var ErrNoEvent = errors.New("event does not occur at this location")

// VisibilityBand is the solar altitude range in which an afterglow is
// observable. Below the floor the sky is dark; above the ceiling the
// sun washes out the colors.
type VisibilityBand struct {
	Floor   float64 // degrees, default -6 (civil twilight)
	Ceiling float64 // degrees, default +6
}

// DefaultBand is the twilight band used for compositing masks.
var DefaultBand = VisibilityBand{Floor: -6, Ceiling: 6}

// ReferenceInstant finds the nominal sunrise or sunset at (lat, lon)
// on the UTC day containing dayStart. It scans the day at a coarse
// step and refines the horizon crossing by bisection. Returns
// ErrNoEvent for polar day/night.
func ReferenceInstant(event models.Event, lat, lon float64, dayStart time.Time) (time.Time, error) {
	const coarse = 4 * time.Minute

	rising := event.IsSunrise()
	prev := SolarPosition(lat, lon, dayStart).Altitude
	for t := dayStart.Add(coarse); !t.After(dayStart.Add(24 * time.Hour)); t = t.Add(coarse) {
		cur := SolarPosition(lat, lon, t).Altitude
		crossed := false
		if rising {
			crossed = prev < EventHorizon && cur >= EventHorizon
		} else {
			crossed = prev >= EventHorizon && cur < EventHorizon
		}
		if crossed {
			return refineCrossing(lat, lon, t.Add(-coarse), t, rising), nil
		}
		prev = cur
	}
	return time.Time{}, ErrNoEvent
}

// refineCrossing bisects [lo, hi] down to second precision.
func refineCrossing(lat, lon float64, lo, hi time.Time, rising bool) time.Time {
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		above := SolarPosition(lat, lon, mid).Altitude >= EventHorizon
		if above == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// Visible reports whether (lat, lon) at instant t is inside the
// twilight band relevant to the event. Sunrise events require the sun
// east of the meridian, sunset events west, so that a morning instant
// never counts toward a sunset composite.
func Visible(event models.Event, lat, lon float64, t time.Time, band VisibilityBand) bool {
	pos := SolarPosition(lat, lon, t)
	if pos.Altitude < band.Floor || pos.Altitude > band.Ceiling {
		return false
	}
	if event.IsSunrise() {
		return pos.HourAngle < 0
	}
	return pos.HourAngle >= 0
}

// VisibilityMask evaluates Visible over every cell of a grid for one
// instant. Used by the compositor to drop cells outside the
// terminator band at that instant.
func VisibilityMask(event models.Event, geom grid.Geometry, t time.Time, band VisibilityBand) *grid.Mask {
	m := grid.NewMask(geom)
	for i := 0; i < geom.Rows; i++ {
		lat := geom.Lat(i)
		for j := 0; j < geom.Cols; j++ {
			m.Set(i, j, Visible(event, lat, geom.Lon(j), t, band))
		}
	}
	return m
}
