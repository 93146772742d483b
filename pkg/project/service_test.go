package project

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

type fakeRepo struct {
	tasks    []*model.Task
	statuses []model.Status
	updates  []map[string]bool
	failSave bool
}

func (f *fakeRepo) ProjectTasks(_ context.Context, projectID string, statuses []model.Status) ([]*model.Task, error) {
	f.statuses = statuses
	var out []*model.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateCriticalPath(_ context.Context, flags map[string]bool) error {
	if f.failSave {
		return errors.New("disk full")
	}
	f.updates = append(f.updates, flags)
	return nil
}

func ptask(id string, minutes int, critical bool, deps ...string) *model.Task {
	return &model.Task{
		ID:             id,
		ProjectID:      "p1",
		Status:         model.StatusTodo,
		DurationMin:    minutes,
		IsCriticalPath: critical,
		BlockedBy:      deps,
	}
}

func TestRecalculateCPM_WritesOnlyChangedFlags(t *testing.T) {
	repo := &fakeRepo{tasks: []*model.Task{
		ptask("design", 60, true),
		ptask("build", 120, false, "design"),
		ptask("docs", 30, true, "design"),
	}}
	svc := NewService(repo, NewPredictor(0), zerolog.Nop())

	result, err := svc.RecalculateCPM(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, model.UnresolvedStatuses(), repo.statuses)
	require.Len(t, repo.updates, 1)
	assert.Equal(t, map[string]bool{"build": true, "docs": false}, repo.updates[0])
	assert.Equal(t, 90, result["docs"].Float)
	assert.True(t, repo.tasks[1].IsCriticalPath)

	_, err = svc.RecalculateCPM(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, repo.updates, 1, "nothing changed on the second run")
}

func TestRecalculateCPM_EmptyProject(t *testing.T) {
	svc := NewService(&fakeRepo{}, NewPredictor(0), zerolog.Nop())
	result, err := svc.RecalculateCPM(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRecalculateCPM_Cycle(t *testing.T) {
	repo := &fakeRepo{tasks: []*model.Task{ptask("a", 10, false, "b"), ptask("b", 10, false, "a")}}
	_, err := NewService(repo, NewPredictor(0), zerolog.Nop()).RecalculateCPM(context.Background(), "p1")
	assert.ErrorIs(t, err, errors.ErrDependencyCycle)
}

func TestRecalculateCPM_WriteFailureStillReturnsResult(t *testing.T) {
	repo := &fakeRepo{tasks: []*model.Task{ptask("a", 10, false)}, failSave: true}
	result, err := NewService(repo, NewPredictor(0), zerolog.Nop()).RecalculateCPM(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, result["a"].IsCritical)
	assert.False(t, repo.tasks[0].IsCriticalPath)
}

func TestNodeDuration(t *testing.T) {
	assert.Equal(t, 90, NodeDuration(&model.Task{DurationMin: 30, DurationMax: 90}))
	assert.Equal(t, 30, NodeDuration(&model.Task{DurationMin: 30}))
	assert.Equal(t, model.DefaultDuration, NodeDuration(&model.Task{}))
}

func TestPredict(t *testing.T) {
	friday := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	p := NewPredictor(0)

	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), p.Predict(nil, friday))

	// 300 minutes: Monday takes 240, Tuesday the rest.
	tasks := []*model.Task{{DurationMin: 120, DurationMax: 180}, {DurationMin: 150}}
	assert.Equal(t, 240.0, Remaining([]*model.Task{{DurationMin: 120, DurationMax: 180}, {}, {DurationMax: 90}}))
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), p.Predict(tasks, friday))

	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), NewPredictor(480).Predict(tasks, friday))
}

func TestPredictCompletion(t *testing.T) {
	repo := &fakeRepo{tasks: []*model.Task{ptask("a", 240, false)}}
	svc := NewService(repo, NewPredictor(0), zerolog.Nop())
	monday := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	got, err := svc.PredictCompletion(context.Background(), "p1", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), got)
}
