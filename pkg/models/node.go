package models

import (
	"fmt"
)

// ComputingNode is a simulated machine that can host tasks.
// The orchestrator only reads nodes; capacity bookkeeping happens in the registry.
type ComputingNode struct {
	ID                 int      `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Type               NodeType `json:"type" yaml:"type"`
	AvailableRAM       float64  `json:"available_ram" yaml:"ram"`         // MB
	AvailableStorage   float64  `json:"available_storage" yaml:"storage"` // MB
	TotalMIPS          float64  `json:"total_mips" yaml:"mips"`
	Cores              int      `json:"cores" yaml:"cores"`
	AvgCPUUtilization  float64  `json:"avg_cpu_utilization" yaml:"-"` // percent, 0-100
	PendingTasks       int      `json:"pending_tasks" yaml:"-"`
	MaxLatencyToDevice float64  `json:"max_latency_to_device" yaml:"latency"` // time units
}

// MIPSPerCore returns the processing speed of a single core
func (n *ComputingNode) MIPSPerCore() float64 {
	if n.Cores <= 0 {
		return n.TotalMIPS
	}
	return n.TotalMIPS / float64(n.Cores)
}

// Layer returns the architectural tier of the node
func (n *ComputingNode) Layer() Layer {
	return n.Type.Layer()
}

// Validate checks that the node attributes are coherent
func (n *ComputingNode) Validate() error {
	if !n.Type.IsValid() {
		return fmt.Errorf("node %d: invalid type %q", n.ID, n.Type)
	}
	if n.TotalMIPS <= 0 {
		return fmt.Errorf("node %d: mips must be positive", n.ID)
	}
	if n.AvailableRAM < 0 || n.AvailableStorage < 0 {
		return fmt.Errorf("node %d: negative capacity", n.ID)
	}
	if n.Cores < 0 {
		return fmt.Errorf("node %d: negative core count", n.ID)
	}
	return nil
}
