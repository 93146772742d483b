package model

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// TimeOfDay is a wall-clock hour and minute, used for timeline boundaries.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted as the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var tod TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &tod.Hour, &tod.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", errors.ErrInvalidTimeOfDay, s)
	}
	if err := tod.validate(); err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", err, s)
	}
	return tod, nil
}

// MustTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

func (t TimeOfDay) validate() error {
	if t.Hour == 24 && t.Minute == 0 {
		return nil
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return errors.ErrInvalidTimeOfDay
	}
	return nil
}

// On returns the instant at this time of day on day's calendar date in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Valid reports whether t is a time of day; 24:00 counts.
func (t TimeOfDay) Valid() bool {
	return t.validate() == nil
}
