package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

var (
	day       = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	nineAM    = model.MustTimeOfDay("09:00")
	fivePM    = model.MustTimeOfDay("17:00")
	lunchTime = fixed("Lunch", 12, 0, 13, 0)
)

func at(h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, time.UTC)
}

func fixed(title string, sh, sm, eh, em int) model.FixedEvent {
	return model.FixedEvent{Title: title, Start: at(sh, sm), End: at(eh, em)}
}

func TestFreeWindows_NoEvents(t *testing.T) {
	got := FreeWindows(day, nil, nineAM, fivePM)
	require.Len(t, got, 1)
	assert.Equal(t, at(9, 0), got[0].Start)
	assert.Equal(t, at(17, 0), got[0].End)
	assert.True(t, got[0].IsWork)
}

func TestFreeWindows_Lunch(t *testing.T) {
	got := FreeWindows(day, []model.FixedEvent{lunchTime}, nineAM, fivePM)
	require.Len(t, got, 2)
	assert.Equal(t, at(12, 0), got[0].End)
	assert.Equal(t, at(13, 0), got[1].Start)
	assert.Equal(t, 180, got[0].DurationMinutes())
	assert.Equal(t, 240, got[1].DurationMinutes())
}

func TestFreeWindows_EventContainsDay(t *testing.T) {
	got := FreeWindows(day, []model.FixedEvent{fixed("offsite", 8, 0, 18, 0)}, nineAM, fivePM)
	assert.Empty(t, got)
}

func TestFreeWindows_EventsOutsideAndOverlapping(t *testing.T) {
	events := []model.FixedEvent{
		fixed("standup", 14, 0, 15, 0),
		fixed("breakfast", 7, 0, 8, 0),
		fixed("early call", 8, 30, 10, 0),
		fixed("review", 14, 30, 15, 30),
		fixed("dinner", 18, 0, 19, 0),
	}
	got := FreeWindows(day, events, nineAM, fivePM)
	require.Len(t, got, 2)
	assert.Equal(t, model.FreeWindow{Start: at(10, 0), End: at(14, 0), IsWork: true}, got[0])
	assert.Equal(t, model.FreeWindow{Start: at(15, 30), End: at(17, 0), IsWork: true}, got[1])

	assert.Equal(t, "standup", events[0].Title, "input order is preserved")
}

func TestFreeWindows_EmptyBoundary(t *testing.T) {
	assert.Empty(t, FreeWindows(day, nil, fivePM, nineAM))
	assert.Empty(t, FreeWindows(day, nil, nineAM, nineAM))
}

func TestFreeWindows_AnchoredInUTC(t *testing.T) {
	local := time.Date(2026, 3, 2, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	got := FreeWindows(local, nil, nineAM, fivePM)
	require.Len(t, got, 1)
	assert.Equal(t, at(9, 0), got[0].Start)
}

// genEvents draws chronologically ordered, non-overlapping events around the day.
func genEvents(t *rapid.T) []model.FixedEvent {
	n := rapid.IntRange(0, 8).Draw(t, "events")
	cursor := at(7, 0)
	events := make([]model.FixedEvent, 0, n)
	for i := 0; i < n; i++ {
		gap := rapid.IntRange(0, 120).Draw(t, fmt.Sprintf("gap%d", i))
		length := rapid.IntRange(1, 150).Draw(t, fmt.Sprintf("len%d", i))
		start := cursor.Add(time.Duration(gap) * time.Minute)
		end := start.Add(time.Duration(length) * time.Minute)
		events = append(events, model.FixedEvent{Title: fmt.Sprintf("e%d", i), Start: start, End: end})
		cursor = end
	}
	return events
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

func TestFreeWindows_ReconstructsBoundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		events := genEvents(t)
		start, end := at(9, 0), at(17, 0)
		windows := FreeWindows(day, events, nineAM, fivePM)

		var free, busy time.Duration
		for i, w := range windows {
			if w.Start.Before(start) || w.End.After(end) || !w.End.After(w.Start) {
				t.Fatalf("window %d out of bounds: %v-%v", i, w.Start, w.End)
			}
			if i > 0 && w.Start.Before(windows[i-1].End) {
				t.Fatalf("windows %d and %d overlap", i-1, i)
			}
			for _, ev := range events {
				if overlap(w.Start, w.End, ev.Start, ev.End) > 0 {
					t.Fatalf("window %d overlaps event %s", i, ev.Title)
				}
			}
			free += w.Duration()
		}
		for _, ev := range events {
			busy += overlap(start, end, ev.Start, ev.End)
		}
		if free+busy != end.Sub(start) {
			t.Fatalf("free %v + busy %v != %v", free, busy, end.Sub(start))
		}
	})
}
