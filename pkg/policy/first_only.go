package policy

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// FirstOnlyPolicy always targets node 0
type FirstOnlyPolicy struct {
	env *Environment
}

// NewFirstOnlyPolicy creates a first-node placement policy
func NewFirstOnlyPolicy(env *Environment) *FirstOnlyPolicy {
	return &FirstOnlyPolicy{env: env}
}

// Name returns the policy name
func (p *FirstOnlyPolicy) Name() string { return "FIRST_ONLY" }

// CommitsLoad implements Committer
func (p *FirstOnlyPolicy) CommitsLoad() {}

// FindNode returns 0 if node 0 is feasible, models.Rejected otherwise
func (p *FirstOnlyPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	if p.env.size() == 0 || !p.env.feasible(task, 0, allowed) {
		return models.Rejected
	}
	return p.env.commit(0)
}
