// Package index remembers which calendar event holds each published task.
package index

import (
	"sync"

	"github.com/harrisonrobin/taskplan/pkg/statefile"
)

// FileName is the index file inside the state directory.
const FileName = "events.json"

// EventIndex maps task ids to calendar event ids. Safe for concurrent use.
type EventIndex struct {
	path     string
	mu       sync.RWMutex
	mappings map[string]string
	dirty    bool
}

// New loads the index stored at path, or starts an empty one.
func New(path string) (*EventIndex, error) {
	idx := &EventIndex{path: path, mappings: make(map[string]string)}
	if err := statefile.Read(path, &idx.mappings); err != nil {
		return nil, err
	}
	if idx.mappings == nil {
		idx.mappings = make(map[string]string)
	}
	return idx, nil
}

// Save writes the index when it changed since the last save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	if err := statefile.Write(idx.path, idx.mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

// Get returns the event id for taskID, or "".
func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.mappings[taskID]
}

// Set records eventID for taskID.
func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.mappings[taskID] != eventID {
		idx.mappings[taskID] = eventID
		idx.dirty = true
	}
}

// Remove forgets taskID.
func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.mappings[taskID]; ok {
		delete(idx.mappings, taskID)
		idx.dirty = true
	}
}

// Len returns the number of mapped tasks.
func (idx *EventIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.mappings)
}
