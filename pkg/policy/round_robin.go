package policy

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// RoundRobinPolicy picks the feasible node with the fewest assignments.
// Ties go to the lowest index.
type RoundRobinPolicy struct {
	env *Environment
}

// NewRoundRobinPolicy creates a least-loaded placement policy
func NewRoundRobinPolicy(env *Environment) *RoundRobinPolicy {
	return &RoundRobinPolicy{env: env}
}

// Name returns the policy name
func (p *RoundRobinPolicy) Name() string { return "ROUND_ROBIN" }

// CommitsLoad implements Committer
func (p *RoundRobinPolicy) CommitsLoad() {}

// FindNode scans every node in index order
func (p *RoundRobinPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	indexes := make([]int, p.env.size())
	for i := range indexes {
		indexes[i] = i
	}
	best := leastLoaded(p.env, task, allowed, indexes)
	if best == models.Rejected {
		return models.Rejected
	}
	return p.env.commit(best)
}

// leastLoaded returns the first feasible index with the strictly smallest count
func leastLoaded(env *Environment, task *models.Task, allowed []models.Layer, indexes []int) int {
	best := models.Rejected
	bestCount := 0
	for _, i := range indexes {
		if !env.feasible(task, i, allowed) {
			continue
		}
		count := env.Counter.Count(i)
		if best == models.Rejected || count < bestCount {
			best = i
			bestCount = count
		}
	}
	return best
}
