package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Static serves a fixed list of events, for files and tests.
type Static struct {
	events []model.FixedEvent
}

// NewStatic returns a provider over a copy of events.
func NewStatic(events []model.FixedEvent) *Static {
	cp := make([]model.FixedEvent, len(events))
	copy(cp, events)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Start.Before(cp[j].Start) })
	return &Static{events: cp}
}

// Lunch returns a provider with a 12:00-13:00 lunch on every day it is asked about.
func Lunch() Provider {
	return lunch{}
}

// Events implements Provider.
func (s *Static) Events(_ context.Context, day time.Time) ([]model.FixedEvent, error) {
	var out []model.FixedEvent
	for _, ev := range s.events {
		if SameDate(ev.Start, day) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// EventsRange implements Provider.
func (s *Static) EventsRange(_ context.Context, start, end time.Time) ([]model.FixedEvent, error) {
	from, _ := DayBounds(start)
	_, until := DayBounds(end)
	var out []model.FixedEvent
	for _, ev := range s.events {
		st := ev.Start.UTC()
		if !st.Before(from) && st.Before(until) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type lunch struct{}

func (lunch) Events(_ context.Context, day time.Time) ([]model.FixedEvent, error) {
	y, m, d := day.Date()
	return []model.FixedEvent{{
		Title:  "Lunch",
		Start:  time.Date(y, m, d, 12, 0, 0, 0, time.UTC),
		End:    time.Date(y, m, d, 13, 0, 0, 0, time.UTC),
		IsWork: true,
	}}, nil
}

func (l lunch) EventsRange(ctx context.Context, start, end time.Time) ([]model.FixedEvent, error) {
	var out []model.FixedEvent
	from, _ := DayBounds(start)
	_, until := DayBounds(end)
	for day := from; day.Before(until); day = day.AddDate(0, 0, 1) {
		evs, _ := l.Events(ctx, day)
		out = append(out, evs...)
	}
	return out, nil
}
