package model

import (
	"fmt"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusTodo      Status = "todo"
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusWaiting   Status = "waiting"
	StatusBlocked   Status = "blocked"
	StatusDelegated Status = "delegated"
	StatusPostponed Status = "postponed"
	StatusPaused    Status = "paused"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Statuses returns every valid status.
func Statuses() []Status {
	return []Status{
		StatusInbox, StatusTodo, StatusScheduled, StatusDone, StatusWaiting,
		StatusBlocked, StatusDelegated, StatusPostponed, StatusPaused,
		StatusOverdue, StatusCancelled,
	}
}

// UnresolvedStatuses are the states a task can be in while it still counts
// towards its project's remaining work.
func UnresolvedStatuses() []Status {
	return []Status{StatusTodo, StatusScheduled, StatusBlocked, StatusInbox}
}

// ParseStatus converts s into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", errors.ErrInvalidTask, s)
	}
	return st, nil
}

// IsValid reports whether s is one of the declared statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusInbox, StatusTodo, StatusScheduled, StatusDone, StatusWaiting,
		StatusBlocked, StatusDelegated, StatusPostponed, StatusPaused,
		StatusOverdue, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether a task in this state may be scheduled.
func (s Status) IsActive() bool {
	return s == StatusTodo || s == StatusScheduled
}

// IsClosed reports whether the state no longer blocks dependents.
func (s Status) IsClosed() bool {
	return s == StatusDone || s == StatusCancelled
}

// CanTransition reports whether a task may move from one status to another.
// Nothing re-enters the inbox, and a closed task can only be reopened to todo.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusInbox {
		return false
	}
	if from.IsClosed() {
		return to == StatusTodo
	}
	return true
}
