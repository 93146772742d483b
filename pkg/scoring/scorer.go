// Package scoring ranks candidate tasks for a time slot.
//
// A score is a sum of weighted terms: a base built from priority, duration and
// complexity, urgency from the task's own due date and its inherited project and
// goal deadlines, flat bonuses for critical-path and milestone tasks, and
// contextual bonuses for matching the slot's energy and continuing the previous
// task's project. Scores are unbounded above and only meaningful as a sort key.
package scoring

import (
	"math"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
)

// durationHorizon is the task length in minutes at which the duration term reaches zero.
const durationHorizon = 240.0

// deadlineHorizonDays is how far out a project or goal deadline starts to count.
const deadlineHorizonDays = 14.0

// Context describes the slot a task is being considered for.
type Context struct {
	// SlotEnergyLevel is 1-3; zero means 1.
	SlotEnergyLevel int
	LastProjectID   string
	// SequenceCount is tracked by the allocator but not yet used in scoring.
	SequenceCount int
	// HoursToEndOfDay is informational.
	HoursToEndOfDay float64
}

// Breakdown is the per-term contribution to a score, after weighting.
type Breakdown struct {
	Priority       float64 `json:"priority"`
	Duration       float64 `json:"duration"`
	Complexity     float64 `json:"complexity"`
	Urgency        float64 `json:"urgency"`
	GoalUrgency    float64 `json:"goal_urgency"`
	ProjectUrgency float64 `json:"project_urgency"`
	CriticalPath   float64 `json:"critical_path"`
	Milestone      float64 `json:"milestone"`
	EnergyMatch    float64 `json:"energy_match"`
	Sequence       float64 `json:"sequence"`
	Total          float64 `json:"total"`
}

// Scorer computes deterministic task scores. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer returns a Scorer using w.
func NewScorer(w Weights) Scorer {
	return Scorer{weights: w}
}

// Weights returns the weights in use.
func (s Scorer) Weights() Weights {
	return s.weights
}

// Score returns the task's desirability for the slot described by ctx, rounded to four decimals.
func (s Scorer) Score(task *model.Task, now time.Time, ctx Context) float64 {
	return s.Explain(task, now, ctx).Total
}

// Explain returns the weighted contribution of every term and their rounded total.
func (s Scorer) Explain(task *model.Task, now time.Time, ctx Context) Breakdown {
	w := s.weights
	var b Breakdown

	b.Priority = w.Priority * float64(task.Priority-1) / 4
	b.Duration = w.Duration * math.Max(0, 1-float64(task.DurationExpected())/durationHorizon)
	b.Complexity = w.Complexity * (1 - float64(task.Complexity-1)/4)

	b.Urgency = w.Urgency * Urgency(task.DueDate, now)
	b.GoalUrgency = w.GoalUrgency * DeadlineUrgency(task.GoalDeadline, now)
	b.ProjectUrgency = w.ProjectUrgency * DeadlineUrgency(task.ProjectDeadline, now)

	if task.IsCriticalPath {
		b.CriticalPath = w.CriticalPath
	}
	if task.IsMilestone {
		b.Milestone = w.Milestone
	}

	slotEnergy := ctx.SlotEnergyLevel
	if slotEnergy == 0 {
		slotEnergy = 1
	}
	// A task that needs more energy than the slot offers just misses the bonus.
	if task.EnergyRequired <= slotEnergy {
		b.EnergyMatch = w.EnergyMatch * float64(task.EnergyRequired) / 3
	}

	if task.ProjectID != "" && task.ProjectID == ctx.LastProjectID {
		b.Sequence = w.Sequence
	}

	total := b.Priority + b.Duration + b.Complexity +
		b.Urgency + b.GoalUrgency + b.ProjectUrgency +
		b.CriticalPath + b.Milestone + b.EnergyMatch + b.Sequence
	b.Total = round4(total)
	return b
}

// Urgency is the unweighted due-date term: 2.0 once overdue, ramping from 1.0
// to 2.0 over the last day, from 0 to 0.5 over the two days before that, and
// 0.1 further out. A nil due date scores 0.
func Urgency(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 0
	}
	hours := due.Sub(now).Hours()
	switch {
	case hours <= 0:
		return 2.0
	case hours <= 24:
		return 1.0 + (1 - hours/24)
	case hours <= 72:
		return 0.5 * (1 - (hours-24)/48)
	default:
		return 0.1
	}
}

// DeadlineUrgency is the unweighted term for an inherited project or goal
// deadline: 1.0 once passed, ramping linearly from 0 to 1.0 over the last 14 days.
func DeadlineUrgency(deadline *time.Time, now time.Time) float64 {
	if deadline == nil {
		return 0
	}
	days := deadline.Sub(now).Hours() / 24
	switch {
	case days <= 0:
		return 1.0
	case days <= deadlineHorizonDays:
		return 1 - days/deadlineHorizonDays
	default:
		return 0
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
