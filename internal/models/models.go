package models

import (
	"fmt"
	"time"
)

// Event identifies one sky event for which an afterglow index is computed.
type Event string

const (
	EventTodaySunrise    Event = "today_sunrise"
	EventTodaySunset     Event = "today_sunset"
	EventTomorrowSunrise Event = "tomorrow_sunrise"
	EventTomorrowSunset  Event = "tomorrow_sunset"
)

// Events lists all supported events in rendering order.
var Events = []Event{
	EventTodaySunrise,
	EventTodaySunset,
	EventTomorrowSunrise,
	EventTomorrowSunset,
}

// ParseEvent validates an event name from a URL or CLI argument.
func ParseEvent(s string) (Event, error) {
	switch Event(s) {
	case EventTodaySunrise, EventTodaySunset, EventTomorrowSunrise, EventTomorrowSunset:
		return Event(s), nil
	}
	return "", fmt.Errorf("unknown event %q", s)
}

// IsSunrise reports whether the event is a sunrise (as opposed to sunset) event.
func (e Event) IsSunrise() bool {
	return e == EventTodaySunrise || e == EventTomorrowSunrise
}

// IsTomorrow reports whether the event falls on the day after the reference date.
func (e Event) IsTomorrow() bool {
	return e == EventTomorrowSunrise || e == EventTomorrowSunset
}

// TargetDate resolves the calendar date of the event relative to now in loc.
func (e Event) TargetDate(now time.Time, loc *time.Location) time.Time {
	d := now.In(loc)
	if e.IsTomorrow() {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// FactorScores holds the four factor values and their composite index
// for one location at one instant.
type FactorScores struct {
	Canvas        float64 `json:"local_clouds"`   // factor A
	LightPath     float64 `json:"light_path"`     // factor B
	AirQuality    float64 `json:"air_quality"`    // factor C
	CloudAltitude float64 `json:"cloud_altitude"` // factor D
	Index         float64 `json:"index"`          // A*B*C*D*10, in [0,10]
}
