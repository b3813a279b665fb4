package models

import (
	"testing"
	"time"
)

func TestParseEvent(t *testing.T) {
	for _, e := range Events {
		got, err := ParseEvent(string(e))
		if err != nil || got != e {
			t.Errorf("ParseEvent(%q) = (%v, %v)", e, got, err)
		}
	}
	if _, err := ParseEvent("noon"); err == nil {
		t.Error("expected error for unknown event")
	}
	if _, err := ParseEvent(""); err == nil {
		t.Error("expected error for empty event")
	}
}

func TestEventPredicates(t *testing.T) {
	tests := []struct {
		event    Event
		sunrise  bool
		tomorrow bool
	}{
		{EventTodaySunrise, true, false},
		{EventTodaySunset, false, false},
		{EventTomorrowSunrise, true, true},
		{EventTomorrowSunset, false, true},
	}
	for _, tt := range tests {
		if got := tt.event.IsSunrise(); got != tt.sunrise {
			t.Errorf("%s.IsSunrise() = %v, want %v", tt.event, got, tt.sunrise)
		}
		if got := tt.event.IsTomorrow(); got != tt.tomorrow {
			t.Errorf("%s.IsTomorrow() = %v, want %v", tt.event, got, tt.tomorrow)
		}
	}
}

func TestTargetDate(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 23:30 UTC on the 28th is already the 29th locally.
	now := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)

	today := EventTodaySunset.TargetDate(now, loc)
	if want := time.Date(2026, 8, 29, 0, 0, 0, 0, loc); !today.Equal(want) {
		t.Errorf("today = %v, want %v", today, want)
	}
	tomorrow := EventTomorrowSunrise.TargetDate(now, loc)
	if want := time.Date(2026, 8, 30, 0, 0, 0, 0, loc); !tomorrow.Equal(want) {
		t.Errorf("tomorrow = %v, want %v", tomorrow, want)
	}
}
