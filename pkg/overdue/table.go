// Package overdue tracks published plan items until their slot ends, so the
// ones whose time passed can be flagged on the calendar.
package overdue

import (
	"sort"
	"sync"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/statefile"
)

// FileName is the table file inside the state directory.
const FileName = "pending_items.json"

// Entry is one published plan item.
type Entry struct {
	TaskID  string    `json:"task_id"`
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	End     time.Time `json:"end"`
}

// Table holds the pending entries keyed by task id. Safe for concurrent use.
type Table struct {
	path    string
	mu      sync.Mutex
	entries map[string]Entry
	dirty   bool
}

// New loads the table stored at path, or starts an empty one.
func New(path string) (*Table, error) {
	t := &Table{path: path, entries: make(map[string]Entry)}
	if err := statefile.Read(path, &t.entries); err != nil {
		return nil, err
	}
	if t.entries == nil {
		t.entries = make(map[string]Entry)
	}
	return t, nil
}

// Save writes the table when it changed.
func (t *Table) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := statefile.Write(t.path, t.entries); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Update records that taskID was published as eventID for a slot ending at end.
// A zero end removes the entry.
func (t *Table) Update(taskID, eventID, title string, end time.Time) {
	if end.IsZero() {
		t.Remove(taskID)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	next := Entry{TaskID: taskID, EventID: eventID, Title: title, End: end}
	if old, ok := t.entries[taskID]; !ok || old != next {
		t.entries[taskID] = next
		t.dirty = true
	}
}

// Remove drops taskID, for example once the task is completed.
func (t *Table) Remove(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[taskID]; ok {
		delete(t.entries, taskID)
		t.dirty = true
	}
}

// Sweep removes and returns the entries whose slot ended before now, earliest first.
func (t *Table) Sweep(now time.Time) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var swept []Entry
	for id, e := range t.entries {
		if e.End.Before(now) {
			swept = append(swept, e)
			delete(t.entries, id)
			t.dirty = true
		}
	}
	sort.Slice(swept, func(i, j int) bool {
		if !swept[i].End.Equal(swept[j].End) {
			return swept[i].End.Before(swept[j].End)
		}
		return swept[i].TaskID < swept[j].TaskID
	})
	return swept
}

// Len returns the number of pending entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
