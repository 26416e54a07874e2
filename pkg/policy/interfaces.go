package policy

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// NodeRegistry exposes the ordered, index-stable node list of a run
type NodeRegistry interface {
	Nodes() []*models.ComputingNode
}

// FeasibilityOracle answers whether a node can legally host a task
type FeasibilityOracle interface {
	IsFeasible(task *models.Task, node *models.ComputingNode, allowed []models.Layer) bool
}

// FeasibilityFunc adapts a plain function to the FeasibilityOracle interface
type FeasibilityFunc func(task *models.Task, node *models.ComputingNode, allowed []models.Layer) bool

// IsFeasible calls f
func (f FeasibilityFunc) IsFeasible(task *models.Task, node *models.ComputingNode, allowed []models.Layer) bool {
	return f(task, node, allowed)
}

// Policy decides which node receives a task.
// FindNode returns a node index or models.Rejected.
type Policy interface {
	Name() string
	FindNode(task *models.Task, allowed []models.Layer) int
}

// Committer is implemented by policies that record their own picks in the
// load counter. The orchestrator counts placements for every other policy.
type Committer interface {
	CommitsLoad()
}

// Environment bundles the collaborators shared by the heuristic policies
type Environment struct {
	Registry NodeRegistry
	Oracle   FeasibilityOracle
	Counter  *LoadCounter
	Rand     Rand
}

// Rand is the subset of *rand.Rand the policies draw from
type Rand interface {
	Intn(n int) int
	Float64() float64
	Perm(n int) []int
}

// size returns the number of nodes a policy may pick from.
// Nodes registered after the counter was built are not tracked.
func (e *Environment) size() int {
	n := len(e.Registry.Nodes())
	if e.Counter != nil && e.Counter.Len() < n {
		return e.Counter.Len()
	}
	return n
}

func (e *Environment) feasible(task *models.Task, index int, allowed []models.Layer) bool {
	nodes := e.Registry.Nodes()
	if index < 0 || index >= len(nodes) {
		return false
	}
	return e.Oracle.IsFeasible(task, nodes[index], allowed)
}

// commit records a successful pick and returns it
func (e *Environment) commit(index int) int {
	if e.Counter != nil {
		e.Counter.Increment(index)
	}
	return index
}
