package simulation

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// ResourceOracle accepts a node when its layer is allowed, it has room for the
// task and the task can finish before its deadline on an idle core.
type ResourceOracle struct{}

// IsFeasible implements policy.FeasibilityOracle
func (ResourceOracle) IsFeasible(task *models.Task, node *models.ComputingNode, allowed []models.Layer) bool {
	if !models.ContainsLayer(allowed, node.Layer()) {
		return false
	}
	if node.AvailableRAM < task.RAMNeed || node.AvailableStorage < task.FileSizeMB() {
		return false
	}
	return node.MaxLatencyToDevice+ExecutionTime(task, node) <= task.MaxLatency
}

// ExecutionTime estimates the processing time of the task on the node.
// Tasks beyond the core count share the cores.
func ExecutionTime(task *models.Task, node *models.ComputingNode) float64 {
	t := task.Length / node.MIPSPerCore()
	if node.Cores > 0 && node.PendingTasks > node.Cores {
		t *= float64(node.PendingTasks) / float64(node.Cores)
	}
	return t
}
