package google

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"

	tpcal "github.com/harrisonrobin/taskplan/pkg/calendar"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/index"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// CalendarClient reads busy time from a user's calendars and writes plan
// items to a dedicated plan calendar.
type CalendarClient struct {
	srv     *calendar.Service
	planID  string
	busyIDs []string
	index   *index.EventIndex
	logger  zerolog.Logger
}

var _ tpcal.Provider = (*CalendarClient)(nil)

// NewCalendarClient wraps an already resolved plan calendar id.
func NewCalendarClient(srv *calendar.Service, planID string, busyIDs []string, idx *index.EventIndex, logger zerolog.Logger) *CalendarClient {
	if len(busyIDs) == 0 {
		busyIDs = []string{"primary"}
	}
	return &CalendarClient{
		srv:     srv,
		planID:  planID,
		busyIDs: busyIDs,
		index:   idx,
		logger:  logger.With().Str("component", "google").Logger(),
	}
}

// Events implements calendar.Provider.
func (c *CalendarClient) Events(ctx context.Context, day time.Time) ([]model.FixedEvent, error) {
	from, until := tpcal.DayBounds(day)
	return c.busy(ctx, from, until)
}

// EventsRange implements calendar.Provider.
func (c *CalendarClient) EventsRange(ctx context.Context, start, end time.Time) ([]model.FixedEvent, error) {
	from, _ := tpcal.DayBounds(start)
	_, until := tpcal.DayBounds(end)
	return c.busy(ctx, from, until)
}

func (c *CalendarClient) busy(ctx context.Context, from, until time.Time) ([]model.FixedEvent, error) {
	var out []model.FixedEvent
	for _, id := range c.busyIDs {
		call := c.srv.Events.List(id).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(until.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")
		err := call.Pages(ctx, func(page *calendar.Events) error {
			for _, ev := range page.Items {
				fixed, ok, err := EventToFixed(ev)
				if err != nil {
					c.logger.Debug().Err(err).Str("calendar_id", id).Msg("skipping unreadable event")
					continue
				}
				if ok {
					out = append(out, fixed)
				}
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "list events of calendar %s", id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// SyncItem creates the plan event for item or patches the existing one.
func (c *CalendarClient) SyncItem(ctx context.Context, item model.ScheduledItem, colorID string) (*calendar.Event, error) {
	if c.planID == "" {
		return nil, errors.Wrap(errors.ErrCalendarNotFound, "no plan calendar configured")
	}
	target, err := ItemToEvent(item, colorID)
	if err != nil {
		return nil, err
	}
	taskID := item.Task.ID

	var existing *calendar.Event
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			existing, err = c.srv.Events.Get(c.planID, eventID).Context(ctx).Do()
			if err != nil || existing.Status == "cancelled" {
				existing = nil
			}
		}
	}
	if existing == nil {
		existing, err = c.FindEvent(ctx, taskID)
		if err != nil {
			return nil, errors.Wrapf(err, "search event of task %s", taskID)
		}
	}

	if existing != nil {
		patch, err := EventNeedsUpdate(existing, target)
		if err != nil {
			return nil, err
		}
		if patch == nil {
			c.remember(taskID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, err
		}
		c.remember(taskID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.planID, target).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "insert event of task %s", taskID)
	}
	c.remember(taskID, created.Id)
	return created, nil
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// FindEvent returns the plan event carrying taskID, or nil.
func (c *CalendarClient) FindEvent(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.planID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", PropertyKey, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	for _, ev := range events.Items {
		if ev.Status != "cancelled" {
			return ev, nil
		}
	}
	return nil, nil
}

// PatchEvent applies a partial update to a plan event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	ev, err := c.srv.Events.Patch(c.planID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "patch event %s", eventID)
	}
	return ev, nil
}

// MarkOverdue prefixes a plan event's title to show its slot passed unfinished.
func (c *CalendarClient) MarkOverdue(ctx context.Context, eventID, title string) error {
	_, err := c.PatchEvent(ctx, eventID, &calendar.Event{Summary: "! " + title})
	return err
}

// DeleteEvent removes a plan event.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.srv.Events.Delete(c.planID, eventID).Context(ctx).Do(); err != nil {
		return errors.Wrapf(err, "delete event %s", eventID)
	}
	return nil
}
