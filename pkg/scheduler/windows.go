// Package scheduler finds free time around fixed events and packs tasks into it.
package scheduler

import (
	"sort"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

// FreeWindows returns the gaps between events inside [start, end) on day's
// calendar date. Boundaries are anchored in UTC. The events slice is not
// reordered. Separate boundaries give separate timelines for the same day.
func FreeWindows(day time.Time, events []model.FixedEvent, start, end model.TimeOfDay) []model.FreeWindow {
	cursor := start.On(day, time.UTC)
	endOfDay := end.On(day, time.UTC)
	if !cursor.Before(endOfDay) {
		return nil
	}

	sorted := make([]model.FixedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var windows []model.FreeWindow
	for _, ev := range sorted {
		if !ev.End.After(cursor) {
			continue
		}
		if !ev.Start.Before(endOfDay) {
			break
		}
		if ev.Start.After(cursor) {
			windows = append(windows, model.FreeWindow{Start: cursor, End: ev.Start, IsWork: true})
		}
		cursor = ev.End
	}

	if cursor.Before(endOfDay) {
		windows = append(windows, model.FreeWindow{Start: cursor, End: endOfDay, IsWork: true})
	}
	return windows
}
