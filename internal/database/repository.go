package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateRun creates a new run record
func (r *Repository) CreateRun(run *Run) error {
	return r.db.Create(run).Error
}

// GetRun retrieves a run by ID
func (r *Repository) GetRun(id string) (*Run, error) {
	var run Run
	if err := r.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &run, nil
}

// ListRuns lists runs, newest first, optionally filtered by algorithm
func (r *Repository) ListRuns(algorithm string) ([]Run, error) {
	var runs []Run
	query := r.db.Order("created_at DESC")
	if algorithm != "" {
		query = query.Where("algorithm = ?", algorithm)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// EndRun marks a run as finished and stores its totals
func (r *Repository) EndRun(id string, status string, totals RunTotals) error {
	now := time.Now()
	res := r.db.Model(&Run{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"end_time":        now,
			"status":          status,
			"tasks_generated": totals.TasksGenerated,
			"tasks_assigned":  totals.TasksAssigned,
			"tasks_rejected":  totals.TasksRejected,
			"tasks_completed": totals.TasksCompleted,
			"tasks_failed":    totals.TasksFailed,
			"simulated_time":  totals.SimulatedTime,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDecisions stores a batch of placements
func (r *Repository) SaveDecisions(decisions []Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.CreateInBatches(decisions, 100).Error
}

// GetDecisions retrieves placements of a run in simulation order. A limit <= 0 returns all.
func (r *Repository) GetDecisions(runID string, limit int) ([]Decision, error) {
	var decisions []Decision
	query := r.db.Where("run_id = ?", runID).Order("sim_time ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&decisions).Error
	return decisions, err
}

// SaveEvents stores a batch of task lifecycle events
func (r *Repository) SaveEvents(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.CreateInBatches(events, 100).Error
}

// GetEvents retrieves events of a run, optionally filtered by type
func (r *Repository) GetEvents(runID string, eventType string) ([]Event, error) {
	var events []Event
	query := r.db.Where("run_id = ?", runID)
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	err := query.Order("sim_time ASC, id ASC").Find(&events).Error
	return events, err
}

// SaveLearningMetrics saves a learning statistics sample
func (r *Repository) SaveLearningMetrics(metrics *LearningMetrics) error {
	return r.db.Create(metrics).Error
}

// GetLearningMetrics retrieves learning samples of a run in simulation order
func (r *Repository) GetLearningMetrics(runID string) ([]LearningMetrics, error) {
	var metrics []LearningMetrics
	err := r.db.Where("run_id = ?", runID).
		Order("sim_time ASC, id ASC").
		Find(&metrics).Error
	return metrics, err
}

// SaveCheckpoint stores model weights
func (r *Repository) SaveCheckpoint(cp *ModelCheckpoint) error {
	return r.db.Create(cp).Error
}

// GetLatestCheckpoint returns the newest checkpoint for an algorithm.
// An empty runID searches every run.
func (r *Repository) GetLatestCheckpoint(runID, algorithm string) (*ModelCheckpoint, error) {
	var cp ModelCheckpoint
	query := r.db.Where("algorithm = ?", algorithm)
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if err := query.Order("id DESC").First(&cp).Error; err != nil {
		return nil, notFound(err)
	}
	return &cp, nil
}

// GetRunSummary aggregates placements, events and learning samples of a run
func (r *Repository) GetRunSummary(runID string) (*RunSummary, error) {
	run, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}
	summary := &RunSummary{
		Run:         run,
		EventCounts: make(map[string]int64),
	}

	if err := r.db.Model(&Decision{}).
		Where("run_id = ?", runID).
		Count(&summary.TotalDecisions).Error; err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}

	if err := r.db.Model(&Decision{}).
		Select("node, node_type, COUNT(*) as count").
		Where("run_id = ?", runID).
		Group("node, node_type").
		Order("node ASC").
		Scan(&summary.PerNode).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate decisions: %w", err)
	}

	var counts []struct {
		EventType string
		Count     int64
	}
	if err := r.db.Model(&Event{}).
		Select("event_type, COUNT(*) as count").
		Where("run_id = ?", runID).
		Group("event_type").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}
	for _, c := range counts {
		summary.EventCounts[c.EventType] = c.Count
	}

	var learned struct {
		AvgEpsilon float64
	}
	if err := r.db.Model(&Decision{}).
		Where("run_id = ?", runID).
		Select("COALESCE(AVG(epsilon), 0) as avg_epsilon").
		Scan(&learned).Error; err != nil {
		return nil, fmt.Errorf("failed to average epsilon: %w", err)
	}
	summary.AvgEpsilon = learned.AvgEpsilon

	var last LearningMetrics
	err = r.db.Where("run_id = ?", runID).Order("id DESC").First(&last).Error
	if err == nil {
		summary.LastLoss = last.LastLoss
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to read learning metrics: %w", err)
	}

	return summary, nil
}

// DeleteRun deletes a run and all related data
func (r *Repository) DeleteRun(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&Decision{}, &Event{}, &LearningMetrics{}, &ModelCheckpoint{}} {
			if err := tx.Where("run_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&Run{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
