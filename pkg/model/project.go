package model

import "time"

// Project groups tasks that share a dependency graph and, optionally, a deadline.
type Project struct {
	ID       string
	Title    string
	Status   string // active, completed, on_hold
	ParentID string
	GoalID   string
	Deadline *time.Time
}

// IsRoot reports whether the project has no parent.
func (p Project) IsRoot() bool {
	return p.ParentID == ""
}

// Goal is a long-range objective; its deadline is inherited by its tasks.
type Goal struct {
	ID       string
	Title    string
	Status   string
	Deadline *time.Time
}
