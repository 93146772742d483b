package model

import "time"

// FixedEvent is an immovable calendar commitment. The planner only routes around it.
type FixedEvent struct {
	Title  string
	Start  time.Time
	End    time.Time
	IsWork bool
}

// FreeWindow is a contiguous span of unscheduled time.
type FreeWindow struct {
	Start  time.Time
	End    time.Time
	IsWork bool
}

// Duration returns the length of the window.
func (w FreeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DurationMinutes returns the length of the window in whole minutes.
func (w FreeWindow) DurationMinutes() int {
	return int(w.Duration() / time.Minute)
}

// ScheduledItem assigns a task to an interval. Items are recomputed on every run.
type ScheduledItem struct {
	Task  *Task
	Start time.Time
	End   time.Time
}
