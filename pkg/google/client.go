// Package google connects taskplan to Google Calendar: busy events come in as
// fixed events and plan items go out as events on a plan calendar.
package google

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/index"
)

// Options selects the calendars to use.
type Options struct {
	// PlanCalendar is the summary (display name) of the calendar plan items go to.
	// Empty disables publishing.
	PlanCalendar string
	// BusyCalendars are calendar ids read for fixed events; empty means "primary".
	BusyCalendars []string
	Index         *index.EventIndex
	Logger        zerolog.Logger
}

// NewClient resolves the plan calendar by name and returns a client for it.
func NewClient(ctx context.Context, srv *calendar.Service, opts Options) (*CalendarClient, error) {
	planID := ""
	if opts.PlanCalendar != "" {
		id, err := ResolveCalendar(ctx, srv, opts.PlanCalendar)
		if err != nil {
			return nil, err
		}
		planID = id
	}
	return NewCalendarClient(srv, planID, opts.BusyCalendars, opts.Index, opts.Logger), nil
}

// ResolveCalendar returns the id of the calendar whose summary is name.
func ResolveCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var id string
	err := srv.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
		for _, item := range list.Items {
			if item.Summary == name {
				id = item.Id
				return errFound
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", errors.Wrap(err, "list calendars")
	}
	if id == "" {
		return "", errors.Wrapf(errors.ErrCalendarNotFound, "%q", name)
	}
	return id, nil
}

var errFound = errors.New("found")
