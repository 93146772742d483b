package taskwarrior

import (
	"strings"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Source names tasks imported from Taskwarrior.
const Source = "taskwarrior"

// PrivateTag marks a task for the personal timeline.
const PrivateTag = "private"

var priorities = map[string]int{"H": 5, "M": 3, "L": 1}

var energies = map[string]int{"L": 1, "M": 2, "H": 3}

// ToModel converts an exported Taskwarrior task. The uuid becomes the task id.
func ToModel(tw Task) (*model.Task, error) {
	if tw.UUID == "" {
		return nil, errors.Wrap(errors.ErrInvalidTask, "taskwarrior task without uuid")
	}
	t := model.NewTask(tw.Description)
	t.ID = tw.UUID
	t.Source = Source
	t.ProjectID = tw.Project
	t.BlockedBy = append([]string(nil), tw.Depends...)

	for _, tag := range tw.Tags {
		if tag == PrivateTag {
			t.IsPrivate = true
			continue
		}
		t.Tags = append(t.Tags, tag)
	}

	var notes []string
	for _, a := range tw.Annotations {
		notes = append(notes, a.Description)
	}
	t.Description = strings.Join(notes, "\n")

	if p, ok := priorities[tw.Priority]; ok {
		t.Priority = p
	}
	if e, ok := energies[strings.ToUpper(tw.Energy)]; ok {
		t.EnergyRequired = e
	}
	if tw.Due != nil && !tw.Due.IsZero() {
		due := tw.Due.Time
		t.DueDate = &due
	}

	est, err := ParseDuration(tw.Est)
	if err != nil {
		return nil, errors.Wrapf(err, "task %s est", tw.UUID)
	}
	estMax, err := ParseDuration(tw.EstMax)
	if err != nil {
		return nil, errors.Wrapf(err, "task %s estmax", tw.UUID)
	}
	act, err := ParseDuration(tw.Act)
	if err != nil {
		return nil, errors.Wrapf(err, "task %s act", tw.UUID)
	}
	t.DurationMin = minutes(est)
	if estMax >= est {
		t.DurationMax = minutes(estMax)
	}
	if est > 0 && act > 0 {
		t.PercentComplete = min(100, int(act*100/est))
	}

	switch tw.Status {
	case PENDING, "":
		t.Status = model.StatusTodo
		if len(t.BlockedBy) > 0 {
			t.Status = model.StatusBlocked
		}
	case RECURRING:
		// The parent template of a recurrence; its pending instances are planned.
		t.Status = model.StatusWaiting
	case WAITING:
		t.Status = model.StatusWaiting
	case COMPLETED:
		t.Status = model.StatusDone
	case DELETED:
		t.Status = model.StatusCancelled
	default:
		return nil, errors.Wrapf(errors.ErrInvalidTask, "task %s: unknown taskwarrior status %q", tw.UUID, tw.Status)
	}
	if t.Status.IsActive() {
		if tw.Start != nil && !tw.Start.IsZero() {
			start := tw.Start.Time
			t.ReadySince = &start
		} else if tw.Scheduled != nil && !tw.Scheduled.IsZero() {
			scheduled := tw.Scheduled.Time
			t.ReadySince = &scheduled
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ToModels converts a batch, stopping at the first invalid task. Taskwarrior
// keeps depends after the blockers complete, so a dependency only blocks when
// it is in the batch and still open.
func ToModels(tws []Task) ([]*model.Task, error) {
	out := make([]*model.Task, 0, len(tws))
	byID := make(map[string]*model.Task, len(tws))
	for _, tw := range tws {
		t, err := ToModel(tw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		byID[t.ID] = t
	}
	for _, t := range out {
		if t.Status == model.StatusBlocked && !openBlocker(t, byID) {
			t.Status = model.StatusTodo
		}
	}
	return out, nil
}

func openBlocker(t *model.Task, byID map[string]*model.Task) bool {
	for _, id := range t.BlockedBy {
		if b, ok := byID[id]; ok && !b.Status.IsClosed() {
			return true
		}
	}
	return false
}
