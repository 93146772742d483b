// Package project keeps per-project derived data current: critical-path flags
// and a projected completion date.
package project

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/taskplan/pkg/cpm"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Repository is the project-scoped view of the task store.
type Repository interface {
	// ProjectTasks returns the project's tasks whose status is in statuses.
	ProjectTasks(ctx context.Context, projectID string, statuses []model.Status) ([]*model.Task, error)
	// UpdateCriticalPath writes the critical-path flag of each task id in one batch.
	UpdateCriticalPath(ctx context.Context, flags map[string]bool) error
}

// Service recalculates project-level data.
type Service struct {
	repo      Repository
	predictor Predictor
	logger    zerolog.Logger
}

// NewService returns a Service.
func NewService(repo Repository, predictor Predictor, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		predictor: predictor,
		logger:    logger.With().Str("component", "project").Logger(),
	}
}

// NodeDuration is the CPM duration of a task: the pessimistic estimate when known.
func NodeDuration(t *model.Task) int {
	if t.DurationMax > 0 {
		return t.DurationMax
	}
	if t.DurationMin > 0 {
		return t.DurationMin
	}
	return model.DefaultDuration
}

// RecalculateCPM runs the critical path over the project's unresolved tasks and
// persists the flags that changed. The computed nodes are returned even when
// the write fails; a stale flag only affects scoring until the next run.
func (s *Service) RecalculateCPM(ctx context.Context, projectID string) (map[string]*cpm.Node, error) {
	tasks, err := s.repo.ProjectTasks(ctx, projectID, model.UnresolvedStatuses())
	if err != nil {
		return nil, errors.Wrapf(err, "load tasks of project %s", projectID)
	}
	if len(tasks) == 0 {
		return map[string]*cpm.Node{}, nil
	}

	nodes := make([]cpm.Node, 0, len(tasks))
	for _, t := range tasks {
		nodes = append(nodes, cpm.Node{TaskID: t.ID, Duration: NodeDuration(t), Dependencies: t.BlockedBy})
	}
	result, err := cpm.CalculateCriticalPath(nodes)
	if err != nil {
		return nil, errors.Wrapf(err, "project %s", projectID)
	}

	changed := make(map[string]bool)
	for _, t := range tasks {
		if n, ok := result[t.ID]; ok && n.IsCritical != t.IsCriticalPath {
			changed[t.ID] = n.IsCritical
		}
	}
	if len(changed) == 0 {
		return result, nil
	}
	if err := s.repo.UpdateCriticalPath(ctx, changed); err != nil {
		return result, errors.Wrapf(err, "update critical path of project %s", projectID)
	}
	for _, t := range tasks {
		if flag, ok := changed[t.ID]; ok {
			t.IsCriticalPath = flag
		}
	}
	s.logger.Info().Str("project_id", projectID).Int("updated", len(changed)).Msg("critical path updated")
	return result, nil
}

// PredictCompletion estimates when the project's unresolved work will be done,
// counting working days after from.
func (s *Service) PredictCompletion(ctx context.Context, projectID string, from time.Time) (time.Time, error) {
	tasks, err := s.repo.ProjectTasks(ctx, projectID, model.UnresolvedStatuses())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "load tasks of project %s", projectID)
	}
	return s.predictor.Predict(tasks, from), nil
}
