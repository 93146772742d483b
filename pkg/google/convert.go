package google

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// PropertyKey is the private extended property that links a plan event to its task.
const PropertyKey = "taskplan_id"

var descriptionID = regexp.MustCompile(`ID: ([A-Za-z0-9\-]+)`)

// ItemToEvent renders a scheduled item as a calendar event on the plan calendar.
func ItemToEvent(item model.ScheduledItem, colorID string) (*calendar.Event, error) {
	task := item.Task
	if task == nil {
		return nil, errors.New("could not convert item without a task")
	}

	summary := task.Title
	if task.DueDate != nil && task.DueDate.Before(item.End) {
		summary = "! " + summary
	} else if task.IsCriticalPath {
		summary = "◆ " + summary
	}

	var desc strings.Builder
	if len(task.Tags) > 0 {
		for _, tag := range task.Tags {
			fmt.Fprintf(&desc, "#%s ", tag)
		}
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Status: %s\n", task.Status)
	if task.ProjectID != "" {
		fmt.Fprintf(&desc, "Project: %s\n", task.ProjectID)
	}
	fmt.Fprintf(&desc, "ID: %s\n", task.ID)

	desc.WriteString("\nAccounting:\n")
	switch {
	case task.DurationMin > 0 && task.DurationMax > 0:
		fmt.Fprintf(&desc, "• estimated: %s to %s\n", minutes(task.DurationMin), minutes(task.DurationMax))
	case task.DurationMin > 0:
		fmt.Fprintf(&desc, "• estimated: %s\n", minutes(task.DurationMin))
	}
	fmt.Fprintf(&desc, "• planned: %s\n", item.End.Sub(item.Start))
	if task.PercentComplete > 0 {
		fmt.Fprintf(&desc, "• progress: %d%%\n", task.PercentComplete)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&desc, "• due: %s\n", task.DueDate.UTC().Format(time.RFC3339))
	}
	if task.IsCriticalPath {
		desc.WriteString("• on the critical path\n")
	}

	if task.Description != "" {
		desc.WriteString("\nNotes:\n")
		desc.WriteString(task.Description)
		desc.WriteString("\n")
	}

	return &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     colorID,
		Start:       &calendar.EventDateTime{DateTime: item.Start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: item.End.UTC().Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{PropertyKey: task.ID},
		},
	}, nil
}

func minutes(m int) time.Duration {
	return time.Duration(m) * time.Minute
}

// EventNeedsUpdate returns the patch that turns existing into target, or nil
// when the fields taskplan manages already match.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	targetStart, targetEnd, err := eventTimes(target)
	if err != nil {
		return nil, err
	}
	existingStart, existingEnd, err := eventTimes(existing)
	if err != nil || !existingStart.Equal(targetStart) || !existingEnd.Equal(targetEnd) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

func eventTimes(ev *calendar.Event) (time.Time, time.Time, error) {
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return time.Time{}, time.Time{}, errors.New("event has no start or end time")
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// EventToFixed converts a busy-calendar event into a fixed event. It reports
// false for events the planner ignores: all-day and cancelled events, and the
// plan events taskplan published itself.
func EventToFixed(ev *calendar.Event) (model.FixedEvent, bool, error) {
	if ev.Status == "cancelled" || TaskIDFromEvent(ev) != "" {
		return model.FixedEvent{}, false, nil
	}
	if ev.Start == nil || ev.Start.DateTime == "" {
		return model.FixedEvent{}, false, nil
	}
	start, end, err := eventTimes(ev)
	if err != nil {
		return model.FixedEvent{}, false, errors.Wrapf(err, "event %s", ev.Id)
	}
	title := ev.Summary
	if title == "" {
		title = "(busy)"
	}
	return model.FixedEvent{Title: title, Start: start.UTC(), End: end.UTC(), IsWork: true}, true, nil
}

// TaskIDFromEvent returns the task id stored on a plan event, falling back to
// the "ID:" line of its description.
func TaskIDFromEvent(ev *calendar.Event) string {
	if ev.ExtendedProperties != nil {
		if id := ev.ExtendedProperties.Private[PropertyKey]; id != "" {
			return id
		}
	}
	if m := descriptionID.FindStringSubmatch(ev.Description); len(m) > 1 && strings.Contains(ev.Description, "Accounting:") {
		return m[1]
	}
	return ""
}
