package learning

import (
	"fmt"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// FeatureVector is an ordered, fixed-length summary of system and task condition
type FeatureVector []float64

// Clone returns a copy of the vector
func (fv FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(fv))
	copy(out, fv)
	return out
}

// FeatureSchema selects which features describe the state
type FeatureSchema string

const (
	// COMPACT_SCHEMA: ram, cpu, storage, queue length, failure rate
	COMPACT_SCHEMA FeatureSchema = "compact"
	// EXTENDED_SCHEMA: ram, cpu, storage, mips, task latency, task size, failed tasks
	EXTENDED_SCHEMA FeatureSchema = "extended"
)

// Size returns the number of features produced by the schema
func (fs FeatureSchema) Size() int {
	switch fs {
	case COMPACT_SCHEMA:
		return 5
	case EXTENDED_SCHEMA:
		return 7
	default:
		return 0
	}
}

// IsValid checks if a FeatureSchema is valid
func (fs FeatureSchema) IsValid() bool {
	return fs.Size() > 0
}

// Feature positions shared by both schemas
const (
	featRAM     = 0
	featCPU     = 1
	featStorage = 2

	compactQueue       = 3
	compactFailureRate = 4

	extendedMIPS        = 3
	extendedLatency     = 4
	extendedFileSize    = 5
	extendedFailedTasks = 6
)

// Experience is one learning sample
type Experience struct {
	State     FeatureVector `json:"state"`
	Action    int           `json:"action"`
	Reward    float64       `json:"reward"`
	NextState FeatureVector `json:"next_state"`
	Terminal  bool          `json:"terminal"`
}

// Hyperparameters configure exploration, replay and training
type Hyperparameters struct {
	Epsilon         float64 `json:"epsilon" yaml:"epsilon"`
	EpsilonMin      float64 `json:"epsilon_min" yaml:"epsilon_min"`
	EpsilonDecay    float64 `json:"epsilon_decay" yaml:"epsilon_decay"`
	Gamma           float64 `json:"gamma" yaml:"gamma"`
	LearningRate    float64 `json:"learning_rate" yaml:"learning_rate"`
	BufferCapacity  int     `json:"buffer_capacity" yaml:"buffer_capacity"`
	BatchSize       int     `json:"batch_size" yaml:"batch_size"`
	MinBufferSize   int     `json:"min_buffer_size" yaml:"min_buffer_size"`     // training needs strictly more
	TrainInterval   float64 `json:"train_interval" yaml:"train_interval"`       // simulated time units
	TargetSyncEvery int     `json:"target_sync_every" yaml:"target_sync_every"` // training rounds between target syncs
	LatencyWeight   float64 `json:"latency_weight" yaml:"latency_weight"`       // extended reward latency term
}

// DefaultHyperparameters returns the standard learning configuration
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Epsilon:         1.0,
		EpsilonMin:      0.01,
		EpsilonDecay:    0.995,
		Gamma:           0.95,
		LearningRate:    0.1,
		BufferCapacity:  1000,
		BatchSize:       16,
		MinBufferSize:   32,
		TrainInterval:   10,
		TargetSyncEvery: 1,
		LatencyWeight:   0,
	}
}

// Validate checks the hyperparameter ranges
func (h Hyperparameters) Validate() error {
	if h.Epsilon < 0 || h.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], got %f", h.Epsilon)
	}
	if h.EpsilonMin < 0 || h.EpsilonMin > 1 {
		return fmt.Errorf("epsilon_min must be in [0, 1], got %f", h.EpsilonMin)
	}
	if h.EpsilonDecay <= 0 || h.EpsilonDecay > 1 {
		return fmt.Errorf("epsilon_decay must be in (0, 1], got %f", h.EpsilonDecay)
	}
	if h.Gamma < 0 || h.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1], got %f", h.Gamma)
	}
	if h.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %f", h.LearningRate)
	}
	if h.BufferCapacity <= 0 || h.BatchSize <= 0 {
		return fmt.Errorf("buffer_capacity and batch_size must be positive")
	}
	if h.BatchSize > h.BufferCapacity {
		return fmt.Errorf("batch_size %d exceeds buffer_capacity %d", h.BatchSize, h.BufferCapacity)
	}
	if h.TrainInterval <= 0 {
		return fmt.Errorf("train_interval must be positive, got %f", h.TrainInterval)
	}
	if h.TargetSyncEvery <= 0 {
		return fmt.Errorf("target_sync_every must be positive, got %d", h.TargetSyncEvery)
	}
	return nil
}

// Stats summarises the learning process.
// Decisions = Explorations + Exploitations + Rejections.
type Stats struct {
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
}

// MetricsSource exposes run-wide task statistics
type MetricsSource interface {
	FailureRate() float64
	TasksSent() int
	TasksFailed() int
	CPUUtilization() float64
}

// Clock reads the simulation time
type Clock interface {
	Now() float64
}

// nodeSnapshot copies the node so later registry mutations do not leak into rewards
func nodeSnapshot(n *models.ComputingNode) models.ComputingNode {
	return *n
}
