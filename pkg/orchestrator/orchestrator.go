package orchestrator

import (
	"fmt"
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/learning"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// Config selects and parameterises the placement strategy
type Config struct {
	Algorithm     string
	AllowedLayers []models.Layer
	TradeOff      policy.TradeOffWeights
	Learning      learning.Hyperparameters
	Seed          int64
}

// DefaultConfig returns a round-robin configuration over every layer
func DefaultConfig() Config {
	return Config{
		Algorithm:     string(ROUND_ROBIN),
		AllowedLayers: models.ValidLayers(),
		TradeOff:      policy.DefaultTradeOffWeights(),
		Learning:      learning.DefaultHyperparameters(),
		Seed:          1,
	}
}

// Dependencies are the collaborators of an Orchestrator.
// Registry and Oracle are required; Metrics and Clock are required by learned algorithms.
type Dependencies struct {
	Registry   policy.NodeRegistry
	Oracle     policy.FeasibilityOracle
	Metrics    learning.MetricsSource
	Clock      learning.Clock
	Online     learning.ValueFunction
	Target     learning.ValueFunction
	Bookkeeper Bookkeeper
	Logger     hclog.Logger
	Rand       policy.Rand
}

// Assignment describes a successful placement
type Assignment struct {
	Task      *models.Task
	Node      int
	NodeType  models.NodeType
	Algorithm Algorithm
	Time      float64
	Epsilon   float64 // exploration rate the decision was made with
}

// Bookkeeper is told about every successful placement. Its errors are logged, never fatal.
type Bookkeeper interface {
	RecordAssignment(a Assignment) error
}

// observer is implemented by policies that learn from applied placements
type observer interface {
	Observe(task *models.Task, node int)
}

type exploration interface {
	Epsilon() float64
}

// Orchestrator dispatches placement decisions to the configured policy
type Orchestrator struct {
	algorithm  Algorithm
	allowed    []models.Layer
	policy     policy.Policy
	counter    *policy.LoadCounter
	registry   policy.NodeRegistry
	clock      learning.Clock
	bookkeeper Bookkeeper
	logger     hclog.Logger
}

type strategyBuilder func(cfg Config, deps Dependencies, env *policy.Environment) (policy.Policy, error)

var strategies = map[Algorithm]strategyBuilder{
	RANDOM: func(_ Config, _ Dependencies, env *policy.Environment) (policy.Policy, error) {
		return policy.NewRandomPolicy(env), nil
	},
	RANDOM_LAYERED: func(_ Config, _ Dependencies, env *policy.Environment) (policy.Policy, error) {
		return policy.NewRandomLayeredPolicy(env), nil
	},
	FIRST_ONLY: func(_ Config, _ Dependencies, env *policy.Environment) (policy.Policy, error) {
		return policy.NewFirstOnlyPolicy(env), nil
	},
	ROUND_ROBIN: func(_ Config, _ Dependencies, env *policy.Environment) (policy.Policy, error) {
		return policy.NewRoundRobinPolicy(env), nil
	},
	TRADE_OFF: func(cfg Config, _ Dependencies, env *policy.Environment) (policy.Policy, error) {
		return policy.NewTradeOffPolicy(env, cfg.TradeOff), nil
	},
	LEARNED: func(cfg Config, deps Dependencies, env *policy.Environment) (policy.Policy, error) {
		return newLearned(learning.COMPACT_SCHEMA, cfg, deps, env)
	},
	LEARNED_V2: func(cfg Config, deps Dependencies, env *policy.Environment) (policy.Policy, error) {
		return newLearned(learning.EXTENDED_SCHEMA, cfg, deps, env)
	},
}

func newLearned(schema learning.FeatureSchema, cfg Config, deps Dependencies, env *policy.Environment) (policy.Policy, error) {
	return learning.NewLearnedPolicy(schema, cfg.Learning, learning.LearnedDependencies{
		Registry: deps.Registry,
		Oracle:   deps.Oracle,
		Metrics:  deps.Metrics,
		Clock:    deps.Clock,
		Online:   deps.Online,
		Target:   deps.Target,
		Rand:     env.Rand,
		Logger:   deps.Logger,
	})
}

// New builds an orchestrator. Unknown algorithm names fail here with a *ConfigurationError.
// The node set must be final: the load counter and any learned action space are sized now.
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	algorithm, err := ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if deps.Registry == nil || deps.Oracle == nil {
		return nil, fmt.Errorf("orchestrator requires a node registry and a feasibility oracle")
	}
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	deps.Logger = logger
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	allowed := cfg.AllowedLayers
	if len(allowed) == 0 {
		allowed = models.ValidLayers()
	}

	counter := policy.NewLoadCounter(len(deps.Registry.Nodes()))
	env := &policy.Environment{
		Registry: deps.Registry,
		Oracle:   deps.Oracle,
		Counter:  counter,
		Rand:     rng,
	}
	p, err := strategies[algorithm](cfg, deps, env)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s policy: %w", algorithm, err)
	}

	logger.Info("orchestrator ready", "algorithm", algorithm, "nodes", counter.Len(), "layers", allowed)
	return &Orchestrator{
		algorithm:  algorithm,
		allowed:    allowed,
		policy:     p,
		counter:    counter,
		registry:   deps.Registry,
		clock:      deps.Clock,
		bookkeeper: deps.Bookkeeper,
		logger:     logger,
	}, nil
}

// Algorithm returns the active algorithm
func (o *Orchestrator) Algorithm() Algorithm {
	return o.algorithm
}

// Policy returns the active policy
func (o *Orchestrator) Policy() policy.Policy {
	return o.policy
}

// Counter returns the shared load counter
func (o *Orchestrator) Counter() *policy.LoadCounter {
	return o.counter
}

// Learned returns the learned policy when a learned algorithm is active
func (o *Orchestrator) Learned() (*learning.LearnedPolicy, bool) {
	lp, ok := o.policy.(*learning.LearnedPolicy)
	return lp, ok
}

// FindComputingNode returns the chosen node index or models.Rejected
func (o *Orchestrator) FindComputingNode(allowed []models.Layer, task *models.Task) (int, error) {
	if o == nil || o.policy == nil {
		return models.Rejected, &ConfigurationError{Reason: "no orchestration algorithm resolved"}
	}
	return o.policy.FindNode(task, allowed), nil
}

// Orchestrate places the task. On success the task's destination is set; a
// rejection leaves it unset and is not an error.
func (o *Orchestrator) Orchestrate(task *models.Task) error {
	if o == nil || o.policy == nil {
		return &ConfigurationError{Reason: "no orchestration algorithm resolved"}
	}
	if _, assigned := task.Destination(); assigned {
		return fmt.Errorf("task %s is already assigned", task.ID)
	}

	// epsilon decays inside the decision
	var epsilon float64
	if e, ok := o.policy.(exploration); ok {
		epsilon = e.Epsilon()
	}
	node, err := o.FindComputingNode(o.allowed, task)
	if err != nil {
		return err
	}
	if node == models.Rejected {
		o.logger.Debug("no feasible node", "task", task.ID, "algorithm", o.algorithm)
		return nil
	}
	if err := task.SetDestination(node); err != nil {
		return fmt.Errorf("failed to assign task: %w", err)
	}
	if _, ok := o.policy.(policy.Committer); !ok {
		o.counter.Increment(node)
	}
	if obs, ok := o.policy.(observer); ok {
		obs.Observe(task, node)
	}
	o.record(task, node, epsilon)
	return nil
}

// record runs post-selection bookkeeping; failures do not undo the assignment
func (o *Orchestrator) record(task *models.Task, node int, epsilon float64) {
	if o.bookkeeper == nil {
		return
	}
	a := Assignment{
		Task:      task,
		Node:      node,
		Algorithm: o.algorithm,
		Epsilon:   epsilon,
	}
	if nodes := o.registry.Nodes(); node < len(nodes) {
		a.NodeType = nodes[node].Type
	}
	if o.clock != nil {
		a.Time = o.clock.Now()
	}
	if err := o.bookkeeper.RecordAssignment(a); err != nil {
		o.logger.Warn("assignment bookkeeping failed", "task", task.ID, "node", node, "error", err)
	}
}
