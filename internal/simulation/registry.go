package simulation

import (
	"fmt"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// Registry is the mutable node list of a run. Indexes never change after construction.
type Registry struct {
	nodes       []*models.ComputingNode
	utilization []ewma
}

// NewRegistry copies the node templates into a fresh registry. CPU utilization
// is smoothed with factor alpha; 1 reports the instantaneous load.
func NewRegistry(templates []models.ComputingNode, alpha float64) (*Registry, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("cpu smoothing must be in (0, 1], got %f", alpha)
	}
	nodes := make([]*models.ComputingNode, len(templates))
	utilization := make([]ewma, len(templates))
	for i := range templates {
		n := templates[i]
		if err := n.Validate(); err != nil {
			return nil, err
		}
		n.ID = i
		n.PendingTasks = 0
		n.AvgCPUUtilization = 0
		nodes[i] = &n
		utilization[i] = ewma{alpha: alpha}
	}
	return &Registry{nodes: nodes, utilization: utilization}, nil
}

// Nodes returns the nodes in index order
func (r *Registry) Nodes() []*models.ComputingNode {
	return r.nodes
}

// Node returns the node at index i
func (r *Registry) Node(i int) (*models.ComputingNode, error) {
	if i < 0 || i >= len(r.nodes) {
		return nil, fmt.Errorf("node %d out of range [0, %d)", i, len(r.nodes))
	}
	return r.nodes[i], nil
}

// Allocate reserves the task's resources on node i
func (r *Registry) Allocate(i int, task *models.Task) error {
	n, err := r.Node(i)
	if err != nil {
		return err
	}
	if n.AvailableRAM < task.RAMNeed || n.AvailableStorage < task.FileSizeMB() {
		return fmt.Errorf("node %d cannot host task %s", i, task.ID)
	}
	n.AvailableRAM -= task.RAMNeed
	n.AvailableStorage -= task.FileSizeMB()
	n.PendingTasks++
	r.updateUtilization(i)
	return nil
}

// Release returns the task's resources to node i
func (r *Registry) Release(i int, task *models.Task) error {
	n, err := r.Node(i)
	if err != nil {
		return err
	}
	if n.PendingTasks == 0 {
		return fmt.Errorf("node %d has no pending tasks", i)
	}
	n.AvailableRAM += task.RAMNeed
	n.AvailableStorage += task.FileSizeMB()
	n.PendingTasks--
	r.updateUtilization(i)
	return nil
}

// CPUUtilization averages node utilization in percent
func (r *Registry) CPUUtilization() float64 {
	if len(r.nodes) == 0 {
		return 0
	}
	var sum float64
	for _, n := range r.nodes {
		sum += n.AvgCPUUtilization
	}
	return sum / float64(len(r.nodes))
}

// updateUtilization treats every pending task as occupying one core
func (r *Registry) updateUtilization(i int) {
	n := r.nodes[i]
	cores := n.Cores
	if cores <= 0 {
		cores = 1
	}
	u := 100 * float64(n.PendingTasks) / float64(cores)
	if u > 100 {
		u = 100
	}
	n.AvgCPUUtilization = r.utilization[i].update(u)
}

// ewma is an exponentially weighted moving average seeded with its first sample
type ewma struct {
	alpha       float64
	value       float64
	initialized bool
}

func (e *ewma) update(x float64) float64 {
	if !e.initialized {
		e.value = x
		e.initialized = true
		return e.value
	}
	e.value = e.alpha*x + (1-e.alpha)*e.value
	return e.value
}
