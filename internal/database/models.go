package database

import (
	"time"
)

// Run statuses
const (
	RUN_RUNNING   = "running"
	RUN_COMPLETED = "completed"
	RUN_FAILED    = "failed"
	RUN_CANCELLED = "cancelled"
)

// Run represents a single simulation run
type Run struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name"`
	Algorithm string     `json:"algorithm" gorm:"index"`
	Seed      int64      `json:"seed"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    string     `json:"status"` // running, completed, failed, cancelled
	Config    string     `json:"config"` // JSON configuration

	TasksGenerated int     `json:"tasks_generated"`
	TasksAssigned  int     `json:"tasks_assigned"`
	TasksRejected  int     `json:"tasks_rejected"`
	TasksCompleted int     `json:"tasks_completed"`
	TasksFailed    int     `json:"tasks_failed"`
	SimulatedTime  float64 `json:"simulated_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunTotals are the final counters of a run
type RunTotals struct {
	TasksGenerated int
	TasksAssigned  int
	TasksRejected  int
	TasksCompleted int
	TasksFailed    int
	SimulatedTime  float64
}

// Decision is one successful placement
type Decision struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	RunID     string  `json:"run_id" gorm:"index"`
	TaskID    string  `json:"task_id"`
	Node      int     `json:"node" gorm:"index"`
	NodeType  string  `json:"node_type"`
	Algorithm string  `json:"algorithm"`
	SimTime   float64 `json:"sim_time"`
	Epsilon   float64 `json:"epsilon"`

	TaskLength   float64 `json:"task_length"`
	FileSizeBits float64 `json:"file_size_bits"`
	MaxLatency   float64 `json:"max_latency"`

	CreatedAt time.Time `json:"created_at"`
}

// Event types
const (
	EVENT_REJECTED  = "task_rejected"
	EVENT_FAILED    = "task_failed"
	EVENT_COMPLETED = "task_completed"
)

// Event represents a task lifecycle event other than placement
type Event struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	RunID     string  `json:"run_id" gorm:"index"`
	SimTime   float64 `json:"sim_time"`
	EventType string  `json:"event_type" gorm:"index"`
	TaskID    string  `json:"task_id"`
	Node      int     `json:"node"`
	Message   string  `json:"message"`

	CreatedAt time.Time `json:"created_at"`
}

// LearningMetrics is a periodic sample of a learned policy's statistics
type LearningMetrics struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	RunID     string  `json:"run_id" gorm:"index"`
	SimTime   float64 `json:"sim_time"`
	Algorithm string  `json:"algorithm"`

	Decisions      int     `json:"decisions"`
	Explorations   int     `json:"explorations"`
	Exploitations  int     `json:"exploitations"`
	Rejections     int     `json:"rejections"`
	Experiences    int     `json:"experiences"`
	BufferSize     int     `json:"buffer_size"`
	TrainingRounds int     `json:"training_rounds"`
	TargetSyncs    int     `json:"target_syncs"`
	LastLoss       float64 `json:"last_loss"`
	LastReward     float64 `json:"last_reward"`
	Epsilon        float64 `json:"epsilon"`

	CreatedAt time.Time `json:"created_at"`
}

// ModelCheckpoint stores serialised value function weights
type ModelCheckpoint struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	RunID     string  `json:"run_id" gorm:"index"`
	Algorithm string  `json:"algorithm"`
	SimTime   float64 `json:"sim_time"`
	Online    string  `json:"online"` // JSON weights
	Target    string  `json:"target"`

	CreatedAt time.Time `json:"created_at"`
}

// NodeShare is the number of placements one node received
type NodeShare struct {
	Node     int    `json:"node"`
	NodeType string `json:"node_type"`
	Count    int64  `json:"count"`
}

// RunSummary aggregates a run for the analytics API
type RunSummary struct {
	Run            *Run             `json:"run"`
	TotalDecisions int64            `json:"total_decisions"`
	PerNode        []NodeShare      `json:"per_node"`
	EventCounts    map[string]int64 `json:"event_counts"`
	AvgEpsilon     float64          `json:"avg_epsilon"`
	LastLoss       float64          `json:"last_loss"`
}
