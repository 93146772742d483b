package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/scoring"
)

func task(id string, minutes, priority int) *model.Task {
	return &model.Task{
		ID:             id,
		Title:          id,
		Status:         model.StatusTodo,
		DurationMin:    minutes,
		DurationMax:    minutes,
		Priority:       priority,
		EnergyRequired: 1,
		Complexity:     1,
	}
}

func ids(items []model.ScheduledItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Task.ID
	}
	return out
}

func window(sh, sm, eh, em int) model.FreeWindow {
	return model.FreeWindow{Start: at(sh, sm), End: at(eh, em), IsWork: true}
}

func TestSchedule_WorkdayWithLunch(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	windows := FreeWindows(day, []model.FixedEvent{lunchTime}, nineAM, fivePM)
	tasks := []*model.Task{task("report", 60, 5), task("filing", 90, 1), task("email", 30, 3)}

	res := a.Schedule(tasks, windows, at(8, 0), EnergyProfile{})

	require.Equal(t, []string{"report", "email", "filing"}, ids(res.Items))
	assert.Equal(t, at(9, 0), res.Items[0].Start)
	assert.Equal(t, at(10, 0), res.Items[1].Start)
	assert.Equal(t, at(10, 30), res.Items[2].Start)
	assert.Equal(t, at(12, 0), res.Items[2].End)
	assert.Empty(t, res.Backlog)

	for _, it := range res.Items {
		assert.False(t, it.Start.Before(at(13, 0)) && it.End.After(at(12, 0)), "%s overlaps lunch", it.Task.ID)
	}
}

func TestSchedule_OverflowGoesToNextWindow(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	windows := FreeWindows(day, []model.FixedEvent{lunchTime}, nineAM, fivePM)
	tasks := []*model.Task{task("a", 120, 5), task("b", 120, 4), task("c", 120, 3)}

	res := a.Schedule(tasks, windows, at(8, 0), EnergyProfile{})

	require.Equal(t, []string{"a", "b", "c"}, ids(res.Items))
	assert.Equal(t, at(13, 0), res.Items[1].Start)
	assert.Equal(t, at(15, 0), res.Items[2].Start)
}

func TestSchedule_TooLongGoesToBacklog(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	tasks := []*model.Task{task("epic", 600, 5), task("small", 15, 1)}

	res := a.Schedule(tasks, []model.FreeWindow{window(9, 0, 17, 0)}, at(8, 0), EnergyProfile{})

	assert.Equal(t, []string{"small"}, ids(res.Items))
	require.Len(t, res.Backlog, 1)
	assert.Equal(t, "epic", res.Backlog[0].ID)
}

func TestSchedule_ExactFit(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	windows := []model.FreeWindow{window(17, 0, 22, 0)}

	res := a.Schedule([]*model.Task{task("walk", 300, 3)}, windows, at(8, 0), EnergyProfile{})
	require.Equal(t, []string{"walk"}, ids(res.Items))
	assert.Equal(t, at(22, 0), res.Items[0].End)
	assert.Empty(t, res.Backlog)

	res = a.Schedule([]*model.Task{task("walk", 301, 3)}, windows, at(8, 0), EnergyProfile{})
	assert.Empty(t, res.Items)
	require.Len(t, res.Backlog, 1)
}

func TestSchedule_SkipsInactive(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	done := task("done", 30, 5)
	done.Status = model.StatusDone
	paused := task("paused", 30, 5)
	paused.Status = model.StatusPaused

	res := a.Schedule([]*model.Task{done, paused, task("live", 30, 1)}, []model.FreeWindow{window(9, 0, 10, 0)}, at(8, 0), EnergyProfile{})

	assert.Equal(t, []string{"live"}, ids(res.Items))
	assert.Empty(t, res.Backlog)
}

// The highest-scoring task that fits is taken even when a lower-scoring one
// would fill the window exactly.
func TestSchedule_FirstFitLeavesSlack(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	tasks := []*model.Task{task("urgent", 40, 5), task("exact", 60, 1)}

	res := a.Schedule(tasks, []model.FreeWindow{window(9, 0, 10, 0)}, at(8, 0), EnergyProfile{})

	assert.Equal(t, []string{"urgent"}, ids(res.Items))
	require.Len(t, res.Backlog, 1)
	assert.Equal(t, "exact", res.Backlog[0].ID)
}

func TestSchedule_TiesFavourShorterThenPoolOrder(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.Weights{Priority: 1}))
	tasks := []*model.Task{task("long", 60, 3), task("short-1", 30, 3), task("short-2", 30, 3)}

	res := a.Schedule(tasks, []model.FreeWindow{window(9, 0, 12, 0)}, at(8, 0), EnergyProfile{})

	assert.Equal(t, []string{"short-1", "short-2", "long"}, ids(res.Items))
}

func TestSchedule_SequenceBonusAcrossWindows(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.Weights{Priority: 1, Sequence: 1}))
	first := task("first", 60, 5)
	first.ProjectID = "alpha"
	sibling := task("sibling", 60, 1)
	sibling.ProjectID = "alpha"
	other := task("other", 60, 3)
	other.ProjectID = "beta"

	windows := []model.FreeWindow{window(9, 0, 10, 0), window(11, 0, 12, 0), window(13, 0, 14, 0)}
	res := a.Schedule([]*model.Task{first, other, sibling}, windows, at(8, 0), EnergyProfile{})

	assert.Equal(t, []string{"first", "sibling", "other"}, ids(res.Items))
}

func TestSchedule_SlotEnergy(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.Weights{EnergyMatch: 1}))
	deep := task("deep", 60, 3)
	deep.EnergyRequired = 3
	light := task("light", 60, 3)

	profile, err := NewEnergyProfile(map[int]int{9: 3, 14: 1})
	require.NoError(t, err)

	morning := a.Schedule([]*model.Task{light, deep}, []model.FreeWindow{window(9, 0, 10, 0)}, at(8, 0), profile)
	assert.Equal(t, []string{"deep"}, ids(morning.Items))

	afternoon := a.Schedule([]*model.Task{deep, light}, []model.FreeWindow{window(14, 0, 15, 0)}, at(8, 0), profile)
	assert.Equal(t, []string{"light"}, ids(afternoon.Items), "high-energy task is not penalised, it only misses the bonus")
}

func TestSchedule_NoWindows(t *testing.T) {
	a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
	res := a.Schedule([]*model.Task{task("a", 30, 3)}, nil, at(8, 0), EnergyProfile{})
	assert.Empty(t, res.Items)
	assert.Len(t, res.Backlog, 1)
}

func TestEnergyProfile(t *testing.T) {
	p, err := NewEnergyProfile(map[int]int{10: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Level(10))
	assert.Equal(t, 1, p.Level(11))
	assert.Equal(t, 1, p.Level(30))

	_, err = NewEnergyProfile(map[int]int{24: 2})
	assert.Error(t, err)
	_, err = NewEnergyProfile(map[int]int{8: 4})
	assert.Error(t, err)
}

func genTasks(t *rapid.T) []*model.Task {
	n := rapid.IntRange(0, 15).Draw(t, "tasks")
	tasks := make([]*model.Task, n)
	statuses := []model.Status{model.StatusTodo, model.StatusScheduled, model.StatusPaused}
	for i := range tasks {
		minutes := rapid.IntRange(5, 240).Draw(t, fmt.Sprintf("min%d", i))
		tk := task(fmt.Sprintf("t%d", i), minutes, rapid.IntRange(1, 5).Draw(t, fmt.Sprintf("prio%d", i)))
		tk.DurationMax = minutes + rapid.IntRange(0, 60).Draw(t, fmt.Sprintf("spread%d", i))
		tk.EnergyRequired = rapid.IntRange(1, 3).Draw(t, fmt.Sprintf("energy%d", i))
		tk.Status = rapid.SampledFrom(statuses).Draw(t, fmt.Sprintf("status%d", i))
		if rapid.Bool().Draw(t, fmt.Sprintf("proj%d", i)) {
			tk.ProjectID = rapid.SampledFrom([]string{"p1", "p2"}).Draw(t, fmt.Sprintf("pid%d", i))
		}
		if rapid.Bool().Draw(t, fmt.Sprintf("due%d", i)) {
			due := at(9, 0).Add(time.Duration(rapid.IntRange(-48, 200).Draw(t, fmt.Sprintf("dueh%d", i))) * time.Hour)
			tk.DueDate = &due
		}
		tasks[i] = tk
	}
	return tasks
}

func TestSchedule_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tasks := genTasks(t)
		windows := FreeWindows(day, genEvents(t), nineAM, fivePM)
		a := NewAllocator(scoring.NewScorer(scoring.DefaultWeights()))
		now := at(8, 0)

		first := a.Schedule(tasks, windows, now, EnergyProfile{9: 3, 13: 2})
		second := a.Schedule(tasks, windows, now, EnergyProfile{9: 3, 13: 2})

		if len(first.Items) != len(second.Items) {
			t.Fatalf("runs differ in length: %d vs %d", len(first.Items), len(second.Items))
		}
		for i := range first.Items {
			f, s := first.Items[i], second.Items[i]
			if f.Task != s.Task || !f.Start.Equal(s.Start) || !f.End.Equal(s.End) {
				t.Fatalf("runs differ at item %d", i)
			}
		}

		active := 0
		for _, tk := range tasks {
			if tk.IsActive() {
				active++
			}
		}
		if len(first.Items)+len(first.Backlog) != active {
			t.Fatalf("items %d + backlog %d != active %d", len(first.Items), len(first.Backlog), active)
		}

		seen := make(map[*model.Task]bool)
		for i, it := range first.Items {
			if seen[it.Task] {
				t.Fatalf("task %s scheduled twice", it.Task.ID)
			}
			seen[it.Task] = true
			if i > 0 && it.Start.Before(first.Items[i-1].End) {
				t.Fatalf("items %d and %d overlap", i-1, i)
			}
			inside := false
			for _, w := range windows {
				if !it.Start.Before(w.Start) && !it.End.After(w.End) {
					inside = true
					break
				}
			}
			if !inside {
				t.Fatalf("item %s at %v-%v is outside every window", it.Task.ID, it.Start, it.End)
			}
		}
	})
}
