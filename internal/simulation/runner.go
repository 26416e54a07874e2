package simulation

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/config"
	"github.com/casperlundberg/task-offloading-orchestrator/internal/database"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/learning"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/orchestrator"
)

// Recorder persists what happens during a run. Its errors are logged, never fatal.
type Recorder interface {
	orchestrator.Bookkeeper
	RecordEvent(kind EventKind, task *models.Task, node int, t float64, message string) error
	RecordLearning(algorithm string, stats learning.Stats, t float64) error
	SaveCheckpoint(algorithm string, online, target learning.ValueFunction, t float64) error
	Finish(status string, summary Summary) error
}

// RunnerOptions are the optional collaborators of a Runner
type RunnerOptions struct {
	Recorder Recorder
	Logger   hclog.Logger
	// Online and Target resume a learned policy from a checkpoint
	Online learning.ValueFunction
	Target learning.ValueFunction
}

// Summary describes a finished run
type Summary struct {
	RunID          string          `json:"run_id,omitempty"`
	Algorithm      string          `json:"algorithm"`
	TasksGenerated int             `json:"tasks_generated"`
	TasksAssigned  int             `json:"tasks_assigned"`
	TasksRejected  int             `json:"tasks_rejected"`
	TasksCompleted int             `json:"tasks_completed"`
	TasksFailed    int             `json:"tasks_failed"`
	SimulatedTime  float64         `json:"simulated_time"`
	PerNode        []int           `json:"per_node"`
	Learning       *learning.Stats `json:"learning,omitempty"`
}

// Totals converts the summary into database run totals
func (s Summary) Totals() database.RunTotals {
	return database.RunTotals{
		TasksGenerated: s.TasksGenerated,
		TasksAssigned:  s.TasksAssigned,
		TasksRejected:  s.TasksRejected,
		TasksCompleted: s.TasksCompleted,
		TasksFailed:    s.TasksFailed,
		SimulatedTime:  s.SimulatedTime,
	}
}

// Runner drives an orchestrator through a discrete-event simulation
type Runner struct {
	cfg          config.Config
	registry     *Registry
	clock        *VirtualClock
	queue        *EventQueue
	metrics      *Metrics
	generator    *Generator
	orchestrator *orchestrator.Orchestrator
	recorder     Recorder
	logger       hclog.Logger

	summary    Summary
	lastRounds int
}

// NewRunner builds the collaborators and the orchestrator for the configuration
func NewRunner(cfg config.Config, opts RunnerOptions) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	registry, err := NewRegistry(cfg.Nodes, cfg.Simulation.CPUSmoothing)
	if err != nil {
		return nil, err
	}
	clock := &VirtualClock{}
	metrics := NewMetrics(registry)

	oc, err := cfg.Orchestrator()
	if err != nil {
		return nil, err
	}
	deps := orchestrator.Dependencies{
		Registry: registry,
		Oracle:   ResourceOracle{},
		Metrics:  metrics,
		Clock:    clock,
		Online:   opts.Online,
		Target:   opts.Target,
		Logger:   logger.Named("orchestrator"),
	}
	if opts.Recorder != nil {
		deps.Bookkeeper = opts.Recorder
	}
	orch, err := orchestrator.New(oc, deps)
	if err != nil {
		return nil, err
	}

	summary := Summary{Algorithm: string(orch.Algorithm())}
	if id, ok := opts.Recorder.(interface{ RunID() string }); ok {
		summary.RunID = id.RunID()
	}

	return &Runner{
		cfg:          cfg,
		registry:     registry,
		clock:        clock,
		queue:        NewEventQueue(),
		metrics:      metrics,
		generator:    NewGenerator(cfg.Simulation, registry, cfg.Seed),
		orchestrator: orch,
		recorder:     opts.Recorder,
		logger:       logger,
		summary:      summary,
	}, nil
}

// Orchestrator returns the orchestrator under test
func (r *Runner) Orchestrator() *orchestrator.Orchestrator {
	return r.orchestrator
}

// Registry returns the node registry of the run
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run simulates until every event is processed or ctx is cancelled
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	for step := 0; float64(step) < r.cfg.Simulation.Duration; step++ {
		for k := 0; k < r.cfg.Simulation.TasksPerStep; k++ {
			r.queue.Push(Event{Time: float64(step), Kind: TASK_ARRIVAL, Node: models.Rejected})
		}
	}
	r.logger.Info("simulation started", "algorithm", r.summary.Algorithm, "events", r.queue.Len(), "nodes", len(r.registry.Nodes()))

	for r.queue.Len() > 0 {
		select {
		case <-ctx.Done():
			r.finish(database.RUN_CANCELLED)
			return r.summary, ctx.Err()
		default:
		}

		ev, _ := r.queue.Pop()
		if err := r.clock.AdvanceTo(ev.Time); err != nil {
			r.finish(database.RUN_FAILED)
			return r.summary, err
		}
		if err := r.handle(ev); err != nil {
			r.finish(database.RUN_FAILED)
			return r.summary, err
		}
	}

	r.finish(database.RUN_COMPLETED)
	r.logger.Info("simulation finished",
		"generated", r.summary.TasksGenerated,
		"completed", r.summary.TasksCompleted,
		"failed", r.summary.TasksFailed,
		"rejected", r.summary.TasksRejected)
	return r.summary, nil
}

func (r *Runner) handle(ev Event) error {
	switch ev.Kind {
	case TASK_ARRIVAL:
		return r.arrive()
	case TASK_EXECUTE:
		r.execute(ev)
	case TASK_COMPLETED, TASK_FAILED:
		return r.complete(ev)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

func (r *Runner) arrive() error {
	now := r.clock.Now()
	task := r.generator.Next(now)
	r.summary.TasksGenerated++
	r.metrics.TaskSent()

	if err := r.orchestrator.Orchestrate(task); err != nil {
		return fmt.Errorf("orchestrate task %s: %w", task.ID, err)
	}
	defer r.recordLearning()

	node, ok := task.Destination()
	if !ok {
		r.summary.TasksRejected++
		r.metrics.TaskRejected()
		r.record(TASK_REJECTED, task, models.Rejected, "no feasible node")
		return nil
	}
	r.summary.TasksAssigned++

	if err := r.registry.Allocate(node, task); err != nil {
		r.summary.TasksFailed++
		r.metrics.TaskFailed()
		r.record(TASK_FAILED, task, node, err.Error())
		return nil
	}

	n, _ := r.registry.Node(node)
	ev := Event{Time: now + n.MaxLatencyToDevice, Kind: TASK_EXECUTE, Task: task, Node: node}
	if n.MaxLatencyToDevice == 0 {
		// local execution starts before other arrivals at this instant
		r.queue.PushFront(ev)
	} else {
		r.queue.Push(ev)
	}
	return nil
}

func (r *Runner) execute(ev Event) {
	n, _ := r.registry.Node(ev.Node)
	finish := ev.Time + ExecutionTime(ev.Task, n)
	deadline := ev.Task.CreatedAt + ev.Task.MaxLatency
	if finish <= deadline {
		r.queue.Push(Event{Time: finish, Kind: TASK_COMPLETED, Task: ev.Task, Node: ev.Node})
		return
	}
	if deadline < ev.Time {
		deadline = ev.Time
	}
	r.queue.Push(Event{Time: deadline, Kind: TASK_FAILED, Task: ev.Task, Node: ev.Node})
}

func (r *Runner) complete(ev Event) error {
	if err := r.registry.Release(ev.Node, ev.Task); err != nil {
		return err
	}
	msg := ""
	if ev.Kind == TASK_COMPLETED {
		r.summary.TasksCompleted++
		r.metrics.TaskCompleted()
	} else {
		r.summary.TasksFailed++
		r.metrics.TaskFailed()
		msg = "deadline exceeded"
	}
	r.record(ev.Kind, ev.Task, ev.Node, msg)
	return nil
}

func (r *Runner) record(kind EventKind, task *models.Task, node int, msg string) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordEvent(kind, task, node, r.clock.Now(), msg); err != nil {
		r.logger.Warn("failed to record event", "kind", kind, "task", task.ID, "error", err)
	}
}

// recordLearning stores learner statistics after every training round
func (r *Runner) recordLearning() {
	lp, ok := r.orchestrator.Learned()
	if !ok || r.recorder == nil {
		return
	}
	stats := lp.Stats()
	if stats.TrainingRounds == r.lastRounds {
		return
	}
	r.lastRounds = stats.TrainingRounds
	if err := r.recorder.RecordLearning(r.summary.Algorithm, stats, r.clock.Now()); err != nil {
		r.logger.Warn("failed to record learning metrics", "error", err)
	}
}

func (r *Runner) finish(status string) {
	r.summary.SimulatedTime = r.clock.Now()
	r.summary.PerNode = r.orchestrator.Counter().Counts()

	if lp, ok := r.orchestrator.Learned(); ok {
		lp.MarkTerminal()
		stats := lp.Stats()
		r.summary.Learning = &stats
		if r.recorder != nil {
			if err := r.recorder.RecordLearning(r.summary.Algorithm, stats, r.clock.Now()); err != nil {
				r.logger.Warn("failed to record learning metrics", "error", err)
			}
			if err := r.recorder.SaveCheckpoint(r.summary.Algorithm, lp.Online(), lp.Target(), r.clock.Now()); err != nil {
				r.logger.Warn("failed to save model checkpoint", "error", err)
			}
		}
	}

	if r.recorder == nil {
		return
	}
	if err := r.recorder.Finish(status, r.summary); err != nil {
		r.logger.Error("failed to finish run", "status", status, "error", err)
	}
}
