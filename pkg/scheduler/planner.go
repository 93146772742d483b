package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/taskplan/pkg/calendar"
	"github.com/harrisonrobin/taskplan/pkg/clock"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// TaskSource supplies the pool of schedulable tasks.
type TaskSource interface {
	GetActiveTasks(ctx context.Context) ([]*model.Task, error)
}

// DayPlan is the schedule for one calendar date.
type DayPlan struct {
	Date     time.Time
	Work     []model.ScheduledItem
	Personal []model.ScheduledItem
	Fixed    []model.FixedEvent
	// Backlog is what remains unscheduled after this day, work tasks first.
	Backlog []*model.Task
}

// Items returns the work and personal items in start order.
func (p DayPlan) Items() []model.ScheduledItem {
	items := make([]model.ScheduledItem, 0, len(p.Work)+len(p.Personal))
	items = append(items, p.Work...)
	items = append(items, p.Personal...)
	sortItems(items)
	return items
}

// Planner builds day and week plans from a task source and a calendar.
// Private tasks are scheduled into personal hours, the rest into work hours.
type Planner struct {
	tasks     TaskSource
	provider  calendar.Provider
	allocator *Allocator
	profile   Profile
	clock     clock.Clock
	logger    zerolog.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithProfile sets the working hours and energy profile.
func WithProfile(p Profile) PlannerOption {
	return func(pl *Planner) { pl.profile = p }
}

// WithClock sets the source of "now" used for scoring.
func WithClock(c clock.Clock) PlannerOption {
	return func(pl *Planner) { pl.clock = c }
}

// WithLogger sets the planner's logger.
func WithLogger(l zerolog.Logger) PlannerOption {
	return func(pl *Planner) { pl.logger = l.With().Str("component", "planner").Logger() }
}

// NewPlanner returns a Planner. A nil provider plans without fixed events.
func NewPlanner(tasks TaskSource, provider calendar.Provider, allocator *Allocator, opts ...PlannerOption) *Planner {
	p := &Planner{
		tasks:     tasks,
		provider:  provider,
		allocator: allocator,
		profile:   DefaultProfile(),
		clock:     clock.RealClock{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanDay schedules the active task pool into day.
func (p *Planner) PlanDay(ctx context.Context, day time.Time) (DayPlan, error) {
	work, personal, err := p.pools(ctx)
	if err != nil {
		return DayPlan{}, err
	}
	day, _ = calendar.DayBounds(day)

	var fixed []model.FixedEvent
	if p.provider != nil {
		fixed, err = p.provider.Events(ctx, day)
		if err != nil {
			p.logger.Warn().Err(err).Time("day", day).Msg("calendar unavailable, planning without fixed events")
			fixed = nil
		}
	}

	plan, _, _ := p.planDay(day, fixed, work, personal, p.clock.Now())
	return plan, nil
}

// PlanWeek plans seven consecutive days from start. Events for the whole
// range are fetched once; tasks placed on one day are gone from the next.
func (p *Planner) PlanWeek(ctx context.Context, start time.Time) ([]DayPlan, error) {
	work, personal, err := p.pools(ctx)
	if err != nil {
		return nil, err
	}
	first, _ := calendar.DayBounds(start)
	last := first.AddDate(0, 0, 6)

	var all []model.FixedEvent
	if p.provider != nil {
		all, err = p.provider.EventsRange(ctx, first, last)
		if err != nil {
			p.logger.Warn().Err(err).Time("start", first).Msg("calendar unavailable, planning week without fixed events")
			all = nil
		}
	}

	now := p.clock.Now()
	plans := make([]DayPlan, 0, 7)
	for i := 0; i < 7; i++ {
		day := first.AddDate(0, 0, i)
		var fixed []model.FixedEvent
		for _, ev := range all {
			if calendar.SameDate(ev.Start, day) {
				fixed = append(fixed, ev)
			}
		}
		var plan DayPlan
		plan, work, personal = p.planDay(day, fixed, work, personal, now)
		plans = append(plans, plan)
	}
	return plans, nil
}

func (p *Planner) planDay(day time.Time, fixed []model.FixedEvent, work, personal []*model.Task, now time.Time) (DayPlan, []*model.Task, []*model.Task) {
	workWindows := FreeWindows(day, fixed, p.profile.WorkStart, p.profile.WorkEnd)
	workResult := p.allocator.Schedule(work, workWindows, now, p.profile.Energy)

	personalWindows := FreeWindows(day, fixed, p.profile.PersonalStart, p.profile.PersonalEnd)
	personalResult := p.allocator.Schedule(personal, personalWindows, now, p.profile.Energy)

	backlog := make([]*model.Task, 0, len(workResult.Backlog)+len(personalResult.Backlog))
	backlog = append(backlog, workResult.Backlog...)
	backlog = append(backlog, personalResult.Backlog...)

	p.logger.Debug().
		Time("day", day).
		Int("fixed", len(fixed)).
		Int("work", len(workResult.Items)).
		Int("personal", len(personalResult.Items)).
		Int("backlog", len(backlog)).
		Msg("planned day")

	plan := DayPlan{
		Date:     day,
		Work:     workResult.Items,
		Personal: personalResult.Items,
		Fixed:    fixed,
		Backlog:  backlog,
	}
	return plan, workResult.Backlog, personalResult.Backlog
}

// pools loads and validates the active tasks and splits them by privacy.
func (p *Planner) pools(ctx context.Context) (work, personal []*model.Task, err error) {
	tasks, err := p.tasks.GetActiveTasks(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load active tasks")
	}
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if err := t.Validate(); err != nil {
			return nil, nil, err
		}
		if t.IsPrivate {
			personal = append(personal, t)
		} else {
			work = append(work, t)
		}
	}
	return work, personal, nil
}

func sortItems(items []model.ScheduledItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })
}
