package ingest

import (
	"fmt"
	"time"

	"chromasky/internal/models"
)

// Windows resolves an event into the list of candidate instants the
// compositor samples. The defaults bracket the nominal event minute by
// half an hour on each side, matching the three-sample windows the
// published maps are computed over.
type Windows struct {
	SunriseTimes []string // local "HH:MM"
	SunsetTimes  []string
	Loc          *time.Location
}

// DefaultWindows uses the historically configured event times for the
// East Asia forecast region.
func DefaultWindows(loc *time.Location) *Windows {
	return &Windows{
		SunriseTimes: []string{"05:30", "06:00", "06:30"},
		SunsetTimes:  []string{"17:30", "18:00", "18:30"},
		Loc:          loc,
	}
}

// Resolve returns the UTC instants making up the event window,
// relative to now.
func (w *Windows) Resolve(event models.Event, now time.Time) ([]time.Time, error) {
	times := w.SunsetTimes
	if event.IsSunrise() {
		times = w.SunriseTimes
	}
	day := event.TargetDate(now, w.Loc)

	instants := make([]time.Time, 0, len(times))
	for _, ts := range times {
		var hh, mm int
		if _, err := fmt.Sscanf(ts, "%d:%d", &hh, &mm); err != nil {
			return nil, fmt.Errorf("window time %q: %w", ts, err)
		}
		local := time.Date(day.Year(), day.Month(), day.Day(), hh, mm, 0, 0, w.Loc)
		instants = append(instants, local.UTC())
	}
	return instants, nil
}

// Suffix returns the window label used in snapshot and map file names,
// e.g. "1800" for the 18:00 local instant.
func Suffix(local time.Time, loc *time.Location) string {
	t := local.In(loc)
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}
