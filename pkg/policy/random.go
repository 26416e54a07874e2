package policy

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// RandomPolicy draws one node uniformly and accepts it only if feasible.
// It never retries, so it can reject while a feasible node exists elsewhere.
type RandomPolicy struct {
	env *Environment
}

// NewRandomPolicy creates a random placement policy
func NewRandomPolicy(env *Environment) *RandomPolicy {
	return &RandomPolicy{env: env}
}

// Name returns the policy name
func (p *RandomPolicy) Name() string { return "RANDOM" }

// CommitsLoad implements Committer
func (p *RandomPolicy) CommitsLoad() {}

// FindNode picks a node for the task
func (p *RandomPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	n := p.env.size()
	if n == 0 {
		return models.Rejected
	}
	candidate := p.env.Rand.Intn(n)
	if !p.env.feasible(task, candidate, allowed) {
		return models.Rejected
	}
	return p.env.commit(candidate)
}
