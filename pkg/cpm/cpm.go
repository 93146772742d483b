// Package cpm computes the critical path of a project's task dependency graph.
package cpm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// Node is one task in the dependency network. Duration and Dependencies are
// inputs; the schedule fields are filled in by CalculateCriticalPath.
type Node struct {
	TaskID       string
	Duration     int
	Dependencies []string

	ES, EF     int
	LS, LF     int
	Float      int
	IsCritical bool
}

// CalculateCriticalPath runs the forward and backward CPM passes over nodes and
// returns the computed nodes keyed by task id. Dependencies on ids that are not
// in nodes are ignored. A dependency cycle returns ErrDependencyCycle.
func CalculateCriticalPath(nodes []Node) (map[string]*Node, error) {
	result := make(map[string]*Node, len(nodes))
	if len(nodes) == 0 {
		return result, nil
	}

	order := make([]string, 0, len(nodes))
	for i := range nodes {
		n := nodes[i]
		if _, dup := result[n.TaskID]; dup {
			return nil, fmt.Errorf("%w: duplicate task id %q", errors.ErrInvalidTask, n.TaskID)
		}
		if n.Duration < 0 {
			return nil, fmt.Errorf("%w: task %q has negative duration", errors.ErrInvalidTask, n.TaskID)
		}
		n.Dependencies = append([]string(nil), n.Dependencies...)
		result[n.TaskID] = &n
		order = append(order, n.TaskID)
	}

	sorted, successors, err := topoSort(order, result)
	if err != nil {
		return nil, err
	}

	// Forward pass.
	projectDuration := 0
	for _, id := range sorted {
		n := result[id]
		n.ES = 0
		for _, dep := range n.Dependencies {
			if p, ok := result[dep]; ok && p.EF > n.ES {
				n.ES = p.EF
			}
		}
		n.EF = n.ES + n.Duration
		projectDuration = max(projectDuration, n.EF)
	}

	// Backward pass.
	for i := len(sorted) - 1; i >= 0; i-- {
		n := result[sorted[i]]
		succ := successors[n.TaskID]
		if len(succ) == 0 {
			n.LF = projectDuration
		} else {
			n.LF = result[succ[0]].LS
			for _, s := range succ[1:] {
				n.LF = min(n.LF, result[s].LS)
			}
		}
		n.LS = n.LF - n.Duration
		n.Float = n.LS - n.ES
		n.IsCritical = n.Float == 0
	}

	return result, nil
}

// topoSort orders ids with Kahn's algorithm, keeping input order among
// independent nodes. It also returns the successor lists it built.
func topoSort(order []string, nodes map[string]*Node) ([]string, map[string][]string, error) {
	inDegree := make(map[string]int, len(order))
	successors := make(map[string][]string, len(order))

	for _, id := range order {
		seen := make(map[string]bool)
		for _, dep := range nodes[id].Dependencies {
			if _, ok := nodes[dep]; !ok || seen[dep] {
				continue
			}
			if dep == id {
				return nil, nil, fmt.Errorf("%w: task %q depends on itself", errors.ErrDependencyCycle, id)
			}
			seen[dep] = true
			successors[dep] = append(successors[dep], id)
			inDegree[id]++
		}
	}

	queue := make([]string, 0, len(order))
	for _, id := range order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]string, 0, len(order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, s := range successors[id] {
			inDegree[s]--
			if inDegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if len(sorted) != len(order) {
		var stuck []string
		for _, id := range order {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return sorted, successors, nil
}

// CriticalIDs returns the ids of the critical nodes in result, sorted.
func CriticalIDs(result map[string]*Node) []string {
	var ids []string
	for id, n := range result {
		if n.IsCritical {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
