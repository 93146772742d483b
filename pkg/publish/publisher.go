// Package publish writes a plan to the plan calendar and flags the items
// whose slot passed without the task being completed.
package publish

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskplan/pkg/colors"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/index"
	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/overdue"
)

// DefaultLimit is the number of calendar writes in flight at once.
const DefaultLimit = 4

// Sink is the calendar that receives plan events. *google.CalendarClient implements it.
type Sink interface {
	SyncItem(ctx context.Context, item model.ScheduledItem, colorID string) (*calendar.Event, error)
	MarkOverdue(ctx context.Context, eventID, title string) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Report counts the outcome of one publish run.
type Report struct {
	Published int
	Failed    int
}

// Publisher keeps the plan calendar, the event index, the overdue table and
// the project colors in step.
type Publisher struct {
	sink   Sink
	index  *index.EventIndex
	table  *overdue.Table
	colors *colors.Cache
	limit  int
	logger zerolog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLimit bounds concurrent calendar writes.
func WithLimit(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithLogger sets the publisher's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger.With().Str("component", "publisher").Logger()
	}
}

// New returns a Publisher writing to sink.
func New(sink Sink, idx *index.EventIndex, table *overdue.Table, cache *colors.Cache, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		index:  idx,
		table:  table,
		colors: cache,
		limit:  DefaultLimit,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes every item to the calendar. A failed item is logged and
// counted; it does not stop the others. State files are saved afterwards.
func (p *Publisher) Publish(ctx context.Context, items []model.ScheduledItem) (Report, error) {
	// Colors are resolved up front so assignment order follows the plan.
	colorIDs := make([]string, len(items))
	for i, it := range items {
		colorIDs[i] = p.colors.ColorID(it.Task.ProjectID)
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, it := range items {
		g.Go(func() error {
			ev, err := p.sink.SyncItem(gctx, it, colorIDs[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Failed++
				p.logger.Warn().Err(err).Str("task_id", it.Task.ID).Msg("could not publish item")
				return nil
			}
			report.Published++
			p.table.Update(it.Task.ID, ev.Id, it.Task.Title, it.End)
			return nil
		})
	}
	err := g.Wait()

	p.logger.Info().Int("published", report.Published).Int("failed", report.Failed).Msg("plan published")
	return report, errors.Join(err, p.save())
}

// Sweep flags the published items whose slot ended before now and returns how
// many were marked.
func (p *Publisher) Sweep(ctx context.Context, now time.Time) (int, error) {
	entries := p.table.Sweep(now)

	var (
		mu     sync.Mutex
		marked int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for _, e := range entries {
		g.Go(func() error {
			if err := p.sink.MarkOverdue(gctx, e.EventID, e.Title); err != nil {
				p.logger.Warn().Err(err).Str("task_id", e.TaskID).Str("event_id", e.EventID).Msg("could not mark item overdue")
				p.table.Update(e.TaskID, e.EventID, e.Title, e.End)
				return nil
			}
			mu.Lock()
			marked++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	if marked > 0 {
		p.logger.Info().Int("marked", marked).Msg("overdue items flagged")
	}
	return marked, errors.Join(err, p.save())
}

// Retire deletes the plan event of a task that left the plan, for example on
// completion, and forgets it.
func (p *Publisher) Retire(ctx context.Context, taskID string) error {
	p.table.Remove(taskID)
	eventID := p.index.Get(taskID)
	if eventID == "" {
		return p.save()
	}
	if err := p.sink.DeleteEvent(ctx, eventID); err != nil {
		return errors.Wrapf(err, "retire task %s", taskID)
	}
	p.index.Remove(taskID)
	return p.save()
}

func (p *Publisher) save() error {
	return errors.Join(
		errors.Wrap(p.index.Save(), "save event index"),
		errors.Wrap(p.table.Save(), "save overdue table"),
		errors.Wrap(p.colors.Save(), "save project colors"),
	)
}
