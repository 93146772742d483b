// Package tasks implements task lifecycle operations over a repository,
// including releasing dependents when their last blocker completes.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/taskplan/pkg/clock"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Repository persists tasks.
type Repository interface {
	// GetActiveTasks returns tasks in todo or scheduled.
	GetActiveTasks(ctx context.Context) ([]*model.Task, error)
	// GetByID returns ErrTaskNotFound for an unknown id.
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// Save inserts a task without an id, assigning one, and updates it otherwise.
	Save(ctx context.Context, task *model.Task) error
	// GetDependentTasks returns the tasks that list blockerID as a blocker.
	GetDependentTasks(ctx context.Context, blockerID string) ([]*model.Task, error)
	// HasActiveBlockers reports whether any blocker of taskID is neither done nor cancelled.
	HasActiveBlockers(ctx context.Context, taskID string) (bool, error)
}

// Service applies lifecycle changes to stored tasks.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger zerolog.Logger
}

// NewService returns a Service.
func NewService(repo Repository, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		clock:  clk,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

// Completion reports a completed task and the dependents it released.
type Completion struct {
	Task     *model.Task
	Unlocked []*model.Task
}

// CompleteTask marks a task done, then moves every blocked dependent whose
// blockers are now all closed to todo. Only direct dependents are released;
// longer chains advance as each link completes.
func (s *Service) CompleteTask(ctx context.Context, id string) (Completion, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	now := s.clock.Now()
	if err := task.Transition(model.StatusDone, now); err != nil {
		return Completion{}, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return Completion{}, errors.Wrapf(err, "save task %s", id)
	}

	dependents, err := s.repo.GetDependentTasks(ctx, id)
	if err != nil {
		return Completion{}, errors.Wrapf(err, "load dependents of %s", id)
	}

	result := Completion{Task: task}
	for _, dep := range dependents {
		if dep.Status != model.StatusBlocked {
			continue
		}
		blocked, err := s.repo.HasActiveBlockers(ctx, dep.ID)
		if err != nil {
			return result, errors.Wrapf(err, "check blockers of %s", dep.ID)
		}
		if blocked {
			continue
		}
		if err := dep.Transition(model.StatusTodo, now); err != nil {
			return result, err
		}
		if err := s.repo.Save(ctx, dep); err != nil {
			return result, errors.Wrapf(err, "save task %s", dep.ID)
		}
		s.logger.Info().Str("task_id", dep.ID).Str("blocker_id", id).Msg("task unlocked")
		result.Unlocked = append(result.Unlocked, dep)
	}
	return result, nil
}

// CreateInput describes a new task.
type CreateInput struct {
	Title          string
	Description    string
	DurationMin    int
	DurationMax    int
	Priority       int
	EnergyRequired int
	ProjectID      string
	ContextID      string
	IsPrivate      bool
	Tags           []string
}

// CreateTask stores a new inbox task. Zero priority and energy take the defaults.
func (s *Service) CreateTask(ctx context.Context, in CreateInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.ErrEmptyTitle
	}
	task := model.NewTask(title)
	task.Description = in.Description
	task.DurationMin = in.DurationMin
	task.DurationMax = in.DurationMax
	task.ProjectID = in.ProjectID
	task.ContextID = in.ContextID
	task.IsPrivate = in.IsPrivate
	task.Tags = in.Tags
	task.Source = "store"
	if in.Priority != 0 {
		task.Priority = in.Priority
	}
	if in.EnergyRequired != 0 {
		task.EnergyRequired = in.EnergyRequired
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, errors.Wrap(err, "save new task")
	}
	s.logger.Debug().Str("task_id", task.ID).Msg("task created")
	return task, nil
}

// Activate moves a task out of the inbox: to blocked when it still has open
// blockers, otherwise to todo.
func (s *Service) Activate(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	blocked, err := s.repo.HasActiveBlockers(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "check blockers of %s", id)
	}
	to := model.StatusTodo
	if blocked {
		to = model.StatusBlocked
	}
	return task, s.transition(ctx, task, to)
}

// Resume returns a paused task to todo, keeping its progress.
func (s *Service) Resume(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != model.StatusPaused {
		return nil, fmt.Errorf("%w: task %s is %s, not paused", errors.ErrInvalidTransition, id, task.Status)
	}
	return task, s.transition(ctx, task, model.StatusTodo)
}

// ForceToday makes a task due now at top priority so the next plan places it first.
func (s *Service) ForceToday(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := task.Transition(model.StatusScheduled, now); err != nil {
		return nil, err
	}
	task.DueDate = &now
	task.Priority = 5
	if err := s.repo.Save(ctx, task); err != nil {
		return nil, errors.Wrapf(err, "save task %s", id)
	}
	return task, nil
}

func (s *Service) transition(ctx context.Context, task *model.Task, to model.Status) error {
	from := task.Status
	if err := task.Transition(to, s.clock.Now()); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, task); err != nil {
		return errors.Wrapf(err, "save task %s", task.ID)
	}
	s.logger.Debug().Str("task_id", task.ID).Str("from", string(from)).Str("to", string(to)).Msg("status changed")
	return nil
}
