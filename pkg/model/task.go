package model

import (
	"fmt"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// DefaultDuration is the expected duration in minutes of a task without estimates.
const DefaultDuration = 30

// Task is a flexible work item the planner can place into free time.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Source      string // "store", "taskwarrior", "orgmode" or "file"
	Tags        []string

	// Estimates in minutes; zero means absent.
	DurationMin int
	DurationMax int
	DueDate     *time.Time

	Priority        int // 1-5
	EnergyRequired  int // 1-3
	Complexity      int // 1-5
	IsPrivate       bool
	PercentComplete int

	IsCriticalPath bool
	IsMilestone    bool

	ProjectID string
	GoalID    string
	ContextID string
	AreaID    string

	// Deadlines inherited from the owning project and goal.
	ProjectDeadline *time.Time
	GoalDeadline    *time.Time

	BlockedBy  []string
	ReadySince *time.Time
}

// NewTask returns an inbox task carrying the default estimates.
func NewTask(title string) *Task {
	return &Task{
		Title:          title,
		Status:         StatusInbox,
		Priority:       3,
		EnergyRequired: 2,
		Complexity:     1,
	}
}

// DurationExpected is the planning estimate in minutes.
func (t *Task) DurationExpected() int {
	if t.DurationMin > 0 && t.DurationMax > 0 {
		return (t.DurationMin + t.DurationMax) / 2
	}
	if t.DurationMin > 0 {
		return t.DurationMin
	}
	return DefaultDuration
}

// EffectiveDuration is the work left on a paused task, never below one minute.
func (t *Task) EffectiveDuration() int {
	base := t.DurationExpected()
	if t.Status != StatusPaused || t.PercentComplete <= 0 {
		return base
	}
	remaining := base * (100 - t.PercentComplete) / 100
	return max(1, remaining)
}

// IsActive reports whether the task belongs in the scheduling pool.
func (t *Task) IsActive() bool {
	return t.Status.IsActive()
}

// Transition moves the task to another status, keeping ReadySince in step:
// it is stamped when the task becomes actionable and cleared when it stops being so.
func (t *Task) Transition(to Status, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, t.Status, to)
	}
	switch {
	case to.IsActive() && !t.Status.IsActive():
		ready := now
		t.ReadySince = &ready
	case !to.IsActive():
		t.ReadySince = nil
	}
	t.Status = to
	return nil
}

// Validate checks the field constraints of the record.
func (t *Task) Validate() error {
	if !t.Status.IsValid() {
		return t.invalid("unknown status %q", t.Status)
	}
	if t.DurationMin < 0 || t.DurationMax < 0 {
		return t.invalid("negative duration")
	}
	if t.DurationMin > 0 && t.DurationMax > 0 && t.DurationMin > t.DurationMax {
		return t.invalid("duration_min %d exceeds duration_max %d", t.DurationMin, t.DurationMax)
	}
	if t.Priority < 1 || t.Priority > 5 {
		return t.invalid("priority %d outside 1-5", t.Priority)
	}
	if t.EnergyRequired < 1 || t.EnergyRequired > 3 {
		return t.invalid("energy %d outside 1-3", t.EnergyRequired)
	}
	if t.Complexity < 1 || t.Complexity > 5 {
		return t.invalid("complexity %d outside 1-5", t.Complexity)
	}
	if t.PercentComplete < 0 || t.PercentComplete > 100 {
		return t.invalid("percent_complete %d outside 0-100", t.PercentComplete)
	}
	if t.Status == StatusBlocked && len(t.BlockedBy) == 0 {
		return t.invalid("blocked without blockers")
	}
	return nil
}

func (t *Task) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: task %q: %s", errors.ErrInvalidTask, t.ID, fmt.Sprintf(format, args...))
}
