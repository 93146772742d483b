// Package taskfile reads a YAML file describing a task pool and the fixed
// events around it.
//
//	tasks:
//	  - id: report
//	    title: Write report
//	    status: todo
//	    duration_min: 60
//	    due: 2026-03-06T17:00:00Z
//	events:
//	  - title: Standup
//	    start: 2026-03-02T09:00:00Z
//	    end: 2026-03-02T09:15:00Z
package taskfile

import (
	"bytes"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Source names tasks read from a task file.
const Source = "file"

// File is the decoded document.
type File struct {
	Tasks  []Task  `yaml:"tasks"`
	Events []Event `yaml:"events"`
}

// Task is one task entry. Zero numbers take the model defaults.
type Task struct {
	ID              string     `yaml:"id"`
	Title           string     `yaml:"title"`
	Description     string     `yaml:"description,omitempty"`
	Status          string     `yaml:"status,omitempty"`
	Tags            []string   `yaml:"tags,omitempty"`
	DurationMin     int        `yaml:"duration_min,omitempty"`
	DurationMax     int        `yaml:"duration_max,omitempty"`
	Due             *time.Time `yaml:"due,omitempty"`
	Priority        int        `yaml:"priority,omitempty"`
	Energy          int        `yaml:"energy,omitempty"`
	Complexity      int        `yaml:"complexity,omitempty"`
	Private         bool       `yaml:"private,omitempty"`
	PercentComplete int        `yaml:"percent_complete,omitempty"`
	Milestone       bool       `yaml:"milestone,omitempty"`
	CriticalPath    bool       `yaml:"critical_path,omitempty"`
	Project         string     `yaml:"project,omitempty"`
	Goal            string     `yaml:"goal,omitempty"`
	BlockedBy       []string   `yaml:"blocked_by,omitempty"`
	ReadySince      *time.Time `yaml:"ready_since,omitempty"`
}

// Event is one fixed event. Work defaults to true.
type Event struct {
	Title string    `yaml:"title"`
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
	Work  *bool     `yaml:"work,omitempty"`
}

// Load reads and decodes path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read task file %s", path)
	}
	f, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "task file %s", path)
	}
	return f, nil
}

// Decode reads a document from r, rejecting unknown keys.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode yaml")
	}
	return &f, nil
}

// ModelTasks converts the task entries, validating each.
func (f *File) ModelTasks() ([]*model.Task, error) {
	out := make([]*model.Task, 0, len(f.Tasks))
	for i, e := range f.Tasks {
		if e.Title == "" {
			return nil, errors.Wrapf(errors.ErrEmptyTitle, "task %d", i)
		}
		t := model.NewTask(e.Title)
		t.ID = e.ID
		t.Source = Source
		t.Status = model.StatusTodo
		if e.Status != "" {
			st, err := model.ParseStatus(e.Status)
			if err != nil {
				return nil, errors.Wrapf(err, "task %q", e.Title)
			}
			t.Status = st
		}
		t.Description = e.Description
		t.Tags = e.Tags
		t.DurationMin, t.DurationMax = e.DurationMin, e.DurationMax
		t.DueDate = e.Due
		if e.Priority != 0 {
			t.Priority = e.Priority
		}
		if e.Energy != 0 {
			t.EnergyRequired = e.Energy
		}
		if e.Complexity != 0 {
			t.Complexity = e.Complexity
		}
		t.IsPrivate = e.Private
		t.PercentComplete = e.PercentComplete
		t.IsMilestone = e.Milestone
		t.IsCriticalPath = e.CriticalPath
		t.ProjectID = e.Project
		t.GoalID = e.Goal
		t.BlockedBy = e.BlockedBy
		t.ReadySince = e.ReadySince
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// FixedEvents converts the event entries. An event must end after it starts.
func (f *File) FixedEvents() ([]model.FixedEvent, error) {
	out := make([]model.FixedEvent, 0, len(f.Events))
	for _, e := range f.Events {
		if !e.End.After(e.Start) {
			return nil, errors.Wrapf(errors.ErrConfigInvalid, "event %q ends before it starts", e.Title)
		}
		work := true
		if e.Work != nil {
			work = *e.Work
		}
		out = append(out, model.FixedEvent{Title: e.Title, Start: e.Start.UTC(), End: e.End.UTC(), IsWork: work})
	}
	return out, nil
}
