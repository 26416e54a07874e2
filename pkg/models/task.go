package models

import (
	"fmt"
)

// Task is a unit of computation that needs a destination node
type Task struct {
	ID           string  `json:"id"`
	Length       float64 `json:"length"`        // million instructions
	FileSizeBits float64 `json:"file_size_bits"` // payload
	MaxLatency   float64 `json:"max_latency"`   // time units
	RAMNeed      float64 `json:"ram_need"`      // MB
	OriginDevice int     `json:"origin_device"`
	CreatedAt    float64 `json:"created_at"`

	destination int
	assigned    bool
}

// NewTask creates an unassigned task
func NewTask(id string, length, fileSizeBits, maxLatency float64, origin int) *Task {
	return &Task{
		ID:           id,
		Length:       length,
		FileSizeBits: fileSizeBits,
		MaxLatency:   maxLatency,
		OriginDevice: origin,
		destination:  Rejected,
	}
}

// FileSizeMB returns the payload size in megabytes
func (t *Task) FileSizeMB() float64 {
	return t.FileSizeBits / 8e6
}

// Destination returns the assigned node index and whether one was set
func (t *Task) Destination() (int, bool) {
	if !t.assigned {
		return Rejected, false
	}
	return t.destination, true
}

// SetDestination records the chosen node. It may only be called once.
func (t *Task) SetDestination(node int) error {
	if t.assigned {
		return fmt.Errorf("task %s already assigned to node %d", t.ID, t.destination)
	}
	if node < 0 {
		return fmt.Errorf("task %s: invalid destination %d", t.ID, node)
	}
	t.destination = node
	t.assigned = true
	return nil
}

// Validate checks that the task is well formed
func (t *Task) Validate() error {
	if t.Length <= 0 {
		return fmt.Errorf("task %s: length must be positive", t.ID)
	}
	if t.FileSizeBits < 0 {
		return fmt.Errorf("task %s: negative file size", t.ID)
	}
	if t.MaxLatency <= 0 {
		return fmt.Errorf("task %s: max latency must be positive", t.ID)
	}
	return nil
}
