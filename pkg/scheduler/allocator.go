package scheduler

import (
	"sort"
	"time"

	"github.com/harrisonrobin/taskplan/pkg/model"
	"github.com/harrisonrobin/taskplan/pkg/scoring"
)

// Result is the outcome of one allocation run.
type Result struct {
	Items   []model.ScheduledItem
	Backlog []*model.Task
}

// Allocator greedily packs tasks into free windows.
//
// For every placement it rescores the whole remaining pool, so a run costs
// O(W·T²·log T) for W windows and T tasks. Pools of a few hundred tasks stay
// well inside a single command invocation.
type Allocator struct {
	scorer scoring.Scorer
}

// NewAllocator returns an Allocator ranking tasks with scorer.
func NewAllocator(scorer scoring.Scorer) *Allocator {
	return &Allocator{scorer: scorer}
}

type candidate struct {
	task     *model.Task
	score    float64
	duration int
}

// Schedule places active tasks from the pool into windows, which must be in
// chronological order. Sequencing state and the shrinking pool carry across
// all windows of the run. Within a window the highest-scoring task that fits
// is taken, shorter tasks winning ties; when nothing fits the window is closed.
// Tasks left over are returned as the backlog, in pool order.
func (a *Allocator) Schedule(tasks []*model.Task, windows []model.FreeWindow, now time.Time, energy EnergyProfile) Result {
	pool := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsActive() {
			pool = append(pool, t)
		}
	}

	absoluteEnd := now
	if len(windows) > 0 {
		absoluteEnd = windows[len(windows)-1].End
	}

	var (
		items         []model.ScheduledItem
		lastProjectID string
		sequenceCount int
	)

	for _, w := range windows {
		current := w.Start
		slotEnergy := energy.Level(current.Hour())

		for len(pool) > 0 && w.End.After(current) {
			ctx := scoring.Context{
				SlotEnergyLevel: slotEnergy,
				LastProjectID:   lastProjectID,
				SequenceCount:   sequenceCount,
				HoursToEndOfDay: absoluteEnd.Sub(current).Hours(),
			}

			ranked := a.rank(pool, now, ctx)
			remaining := w.End.Sub(current).Minutes()

			pick := -1
			for _, c := range ranked {
				if float64(c.duration) <= remaining {
					pick = indexOf(pool, c.task)
					break
				}
			}
			if pick < 0 {
				break
			}

			task := pool[pick]
			end := current.Add(time.Duration(task.DurationExpected()) * time.Minute)
			items = append(items, model.ScheduledItem{Task: task, Start: current, End: end})
			current = end
			pool = append(pool[:pick], pool[pick+1:]...)

			if task.ProjectID != "" && task.ProjectID == lastProjectID {
				sequenceCount++
			} else {
				sequenceCount = 0
			}
			lastProjectID = task.ProjectID
		}
	}

	return Result{Items: items, Backlog: pool}
}

// rank scores the pool and orders it by score descending, then duration ascending.
// Equal keys keep pool order.
func (a *Allocator) rank(pool []*model.Task, now time.Time, ctx scoring.Context) []candidate {
	ranked := make([]candidate, len(pool))
	for i, t := range pool {
		ranked[i] = candidate{task: t, score: a.scorer.Score(t, now, ctx), duration: t.DurationExpected()}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].duration < ranked[j].duration
	})
	return ranked
}

func indexOf(pool []*model.Task, t *model.Task) int {
	for i, p := range pool {
		if p == t {
			return i
		}
	}
	return -1
}
