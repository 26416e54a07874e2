package simulation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/config"
	"github.com/casperlundberg/task-offloading-orchestrator/internal/database"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/learning"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/orchestrator"
)

var eventTypes = map[EventKind]string{
	TASK_REJECTED:  database.EVENT_REJECTED,
	TASK_FAILED:    database.EVENT_FAILED,
	TASK_COMPLETED: database.EVENT_COMPLETED,
}

// DBRecorder buffers decisions and events of one run and writes them in batches
type DBRecorder struct {
	repo       *database.Repository
	runID      string
	decisions  []database.Decision
	events     []database.Event
	bufferSize int
}

// NewDBRecorder creates the run record and returns a recorder bound to it
func NewDBRecorder(repo *database.Repository, cfg config.Config) (*DBRecorder, error) {
	alg, err := orchestrator.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	now := time.Now()
	run := &database.Run{
		ID:        uuid.New().String(),
		Name:      cfg.Name,
		Algorithm: string(alg),
		Seed:      cfg.Seed,
		StartTime: now,
		Status:    database.RUN_RUNNING,
		Config:    string(raw),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateRun(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &DBRecorder{
		repo:       repo,
		runID:      run.ID,
		decisions:  make([]database.Decision, 0, 100),
		events:     make([]database.Event, 0, 100),
		bufferSize: 100,
	}, nil
}

// RunID returns the run ID
func (dr *DBRecorder) RunID() string {
	return dr.runID
}

// RecordAssignment implements orchestrator.Bookkeeper
func (dr *DBRecorder) RecordAssignment(a orchestrator.Assignment) error {
	dr.decisions = append(dr.decisions, database.Decision{
		RunID:        dr.runID,
		TaskID:       a.Task.ID,
		Node:         a.Node,
		NodeType:     string(a.NodeType),
		Algorithm:    string(a.Algorithm),
		SimTime:      a.Time,
		Epsilon:      a.Epsilon,
		TaskLength:   a.Task.Length,
		FileSizeBits: a.Task.FileSizeBits,
		MaxLatency:   a.Task.MaxLatency,
		CreatedAt:    time.Now(),
	})
	if len(dr.decisions) >= dr.bufferSize {
		return dr.flush()
	}
	return nil
}

// RecordEvent buffers a task lifecycle event
func (dr *DBRecorder) RecordEvent(kind EventKind, task *models.Task, node int, t float64, message string) error {
	eventType, ok := eventTypes[kind]
	if !ok {
		return fmt.Errorf("event kind %q is not recorded", kind)
	}
	dr.events = append(dr.events, database.Event{
		RunID:     dr.runID,
		SimTime:   t,
		EventType: eventType,
		TaskID:    task.ID,
		Node:      node,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(dr.events) >= dr.bufferSize {
		return dr.flush()
	}
	return nil
}

// RecordLearning stores a learner statistics sample
func (dr *DBRecorder) RecordLearning(algorithm string, stats learning.Stats, t float64) error {
	return dr.repo.SaveLearningMetrics(&database.LearningMetrics{
		RunID:          dr.runID,
		SimTime:        t,
		Algorithm:      algorithm,
		Decisions:      stats.Decisions,
		Explorations:   stats.Explorations,
		Exploitations:  stats.Exploitations,
		Rejections:     stats.Rejections,
		Experiences:    stats.Experiences,
		BufferSize:     stats.BufferSize,
		TrainingRounds: stats.TrainingRounds,
		TargetSyncs:    stats.TargetSyncs,
		LastLoss:       stats.LastLoss,
		LastReward:     stats.LastReward,
		Epsilon:        stats.Epsilon,
		CreatedAt:      time.Now(),
	})
}

// SaveCheckpoint stores both value functions. They must implement json.Marshaler.
func (dr *DBRecorder) SaveCheckpoint(algorithm string, online, target learning.ValueFunction, t float64) error {
	onlineJSON, err := encodeModel(online)
	if err != nil {
		return fmt.Errorf("online model: %w", err)
	}
	targetJSON, err := encodeModel(target)
	if err != nil {
		return fmt.Errorf("target model: %w", err)
	}
	return dr.repo.SaveCheckpoint(&database.ModelCheckpoint{
		RunID:     dr.runID,
		Algorithm: algorithm,
		SimTime:   t,
		Online:    onlineJSON,
		Target:    targetJSON,
		CreatedAt: time.Now(),
	})
}

func encodeModel(vf learning.ValueFunction) (string, error) {
	m, ok := vf.(json.Marshaler)
	if !ok {
		return "", fmt.Errorf("%T cannot be serialised", vf)
	}
	b, err := m.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// LoadCheckpoint restores the newest linear models stored for the algorithm
func LoadCheckpoint(repo *database.Repository, algorithm string) (online, target *learning.LinearQModel, err error) {
	cp, err := repo.GetLatestCheckpoint("", algorithm)
	if err != nil {
		return nil, nil, err
	}
	online, target = &learning.LinearQModel{}, &learning.LinearQModel{}
	if err := json.Unmarshal([]byte(cp.Online), online); err != nil {
		return nil, nil, fmt.Errorf("decode online model: %w", err)
	}
	if err := json.Unmarshal([]byte(cp.Target), target); err != nil {
		return nil, nil, fmt.Errorf("decode target model: %w", err)
	}
	return online, target, nil
}

// Finish flushes buffered rows and closes the run record
func (dr *DBRecorder) Finish(status string, summary Summary) error {
	if err := dr.flush(); err != nil {
		return err
	}
	return dr.repo.EndRun(dr.runID, status, summary.Totals())
}

func (dr *DBRecorder) flush() error {
	if err := dr.repo.SaveDecisions(dr.decisions); err != nil {
		return fmt.Errorf("failed to save decisions: %w", err)
	}
	dr.decisions = dr.decisions[:0]
	if err := dr.repo.SaveEvents(dr.events); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}
	dr.events = dr.events[:0]
	return nil
}
