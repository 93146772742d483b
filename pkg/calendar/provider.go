// Package calendar defines where fixed events come from.
package calendar

import (
	"context"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Provider returns the fixed events of the user it was built for.
type Provider interface {
	// Events returns the events starting on day's calendar date.
	Events(ctx context.Context, day time.Time) ([]model.FixedEvent, error)
	// EventsRange returns the events starting between the dates of start and end, inclusive.
	EventsRange(ctx context.Context, start, end time.Time) ([]model.FixedEvent, error)
}

// DayBounds returns midnight UTC of day's date and of the following date.
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// SameDate reports whether t falls on day's calendar date in UTC.
func SameDate(t, day time.Time) bool {
	ty, tm, td := t.UTC().Date()
	dy, dm, dd := day.Date()
	return ty == dy && tm == dm && td == dd
}
