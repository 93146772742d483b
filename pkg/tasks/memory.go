package tasks

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// MemoryRepository is a Repository held in memory, used for task files and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string
}

// NewMemoryRepository returns a repository seeded with tasks. Tasks without an id get one.
func NewMemoryRepository(tasks ...*model.Task) *MemoryRepository {
	r := &MemoryRepository{tasks: make(map[string]*model.Task)}
	for _, t := range tasks {
		_ = r.Save(context.Background(), t)
	}
	return r
}

// GetActiveTasks implements Repository.
func (r *MemoryRepository) GetActiveTasks(context.Context) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Task
	for _, id := range r.order {
		if t := r.tasks[id]; t.IsActive() {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetByID implements Repository.
func (r *MemoryRepository) GetByID(_ context.Context, id string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrTaskNotFound, "id %s", id)
	}
	return t, nil
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if _, ok := r.tasks[task.ID]; !ok {
		r.order = append(r.order, task.ID)
	}
	r.tasks[task.ID] = task
	return nil
}

// GetDependentTasks implements Repository.
func (r *MemoryRepository) GetDependentTasks(_ context.Context, blockerID string) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.Task
	for _, id := range r.order {
		t := r.tasks[id]
		for _, b := range t.BlockedBy {
			if b == blockerID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

// HasActiveBlockers implements Repository. Unknown blocker ids do not block.
func (r *MemoryRepository) HasActiveBlockers(_ context.Context, taskID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return false, errors.Wrapf(errors.ErrTaskNotFound, "id %s", taskID)
	}
	for _, b := range t.BlockedBy {
		if blocker, ok := r.tasks[b]; ok && !blocker.Status.IsClosed() {
			return true, nil
		}
	}
	return false, nil
}

// All returns every task, ordered by id.
func (r *MemoryRepository) All() []*model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
