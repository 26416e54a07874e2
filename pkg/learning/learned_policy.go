package learning

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// LearnedDependencies are the collaborators of a LearnedPolicy.
// Online and Target are optional; a LinearQModel pair is created when both are nil.
type LearnedDependencies struct {
	Registry policy.NodeRegistry
	Oracle   policy.FeasibilityOracle
	Metrics  MetricsSource
	Clock    Clock
	Online   ValueFunction
	Target   ValueFunction
	Rand     policy.Rand
	Logger   hclog.Logger
}

// LearnedPolicy places tasks with an epsilon-greedy value-function policy and
// learns from replayed experiences.
//
// The experience of a decision is completed when the next decision starts (or on
// MarkTerminal), so rewards see the failure rate that followed the action.
// The action space is the node count at construction; later nodes are never chosen.
type LearnedPolicy struct {
	schema     FeatureSchema
	hp         Hyperparameters
	clock      Clock
	metrics    MetricsSource
	registry   policy.NodeRegistry
	featurizer *Featurizer
	selector   *ActionSelector
	buffer     *ReplayBuffer
	trainer    *Trainer
	online     ValueFunction
	target     ValueFunction
	reward     RewardFunc
	logger     hclog.Logger

	current *decisionState
	pending *pendingExperience
	stats   Stats
}

type decisionState struct {
	state  FeatureVector
	action int
}

type pendingExperience struct {
	state    FeatureVector
	action   int
	snapshot FeatureVector
	node     models.ComputingNode
	task     models.Task
}

// NewLearnedPolicy creates a learned placement policy
func NewLearnedPolicy(schema FeatureSchema, hp Hyperparameters, deps LearnedDependencies) (*LearnedPolicy, error) {
	if !schema.IsValid() {
		return nil, fmt.Errorf("unknown feature schema %q", schema)
	}
	if err := hp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	if deps.Registry == nil || deps.Oracle == nil || deps.Metrics == nil || deps.Clock == nil || deps.Rand == nil {
		return nil, fmt.Errorf("learned policy requires registry, oracle, metrics, clock and rand")
	}
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	actions := len(deps.Registry.Nodes())
	if actions == 0 {
		return nil, fmt.Errorf("learned policy requires at least one node")
	}

	online, target := deps.Online, deps.Target
	switch {
	case online == nil && target == nil:
		model := NewLinearQModel(schema.Size(), actions, hp.LearningRate, deps.Rand)
		online, target = model, model.Clone()
	case online != nil && target == nil:
		lm, ok := online.(*LinearQModel)
		if !ok {
			return nil, fmt.Errorf("target value function required for %T", online)
		}
		target = lm.Clone()
	case online == nil:
		return nil, fmt.Errorf("online value function required when target is set")
	}
	for _, vf := range []ValueFunction{online, target} {
		if lm, ok := vf.(*LinearQModel); ok && (lm.Features() != schema.Size() || lm.Actions() != actions) {
			return nil, fmt.Errorf("model shape %dx%d does not match %d actions and %d features",
				lm.Actions(), lm.Features(), actions, schema.Size())
		}
	}

	p := &LearnedPolicy{
		schema:     schema,
		hp:         hp,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		registry:   deps.Registry,
		featurizer: NewFeaturizer(schema, deps.Registry, deps.Metrics),
		selector:   NewActionSelector(schema, deps.Registry, deps.Oracle, deps.Rand, hp),
		buffer:     NewReplayBuffer(hp.BufferCapacity, deps.Rand),
		trainer:    NewTrainer(online, target, hp.Gamma, hp.TargetSyncEvery),
		online:     online,
		target:     target,
		logger:     logger.Named("learned"),
	}
	if schema == EXTENDED_SCHEMA {
		p.reward = ExtendedReward{LatencyWeight: hp.LatencyWeight}.Reward
	} else {
		p.reward = CompactReward
	}
	p.stats.Epsilon = p.selector.Epsilon()
	return p, nil
}

// Name returns the policy name
func (p *LearnedPolicy) Name() string {
	if p.schema == EXTENDED_SCHEMA {
		return "LEARNED_V2"
	}
	return "LEARNED"
}

// FindNode featurizes the state, completes the previous experience and selects an action
func (p *LearnedPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	state := p.featurizer.Featurize(task)
	p.completePending(state, false)
	p.current = nil

	sel, err := p.selector.Select(state, task, allowed, p.online)
	p.stats.Decisions++
	p.stats.Epsilon = p.selector.Epsilon()
	if err != nil {
		p.logger.Error("action selection failed", "task", task.ID, "error", err)
		p.stats.Rejections++
		return models.Rejected
	}
	if sel.Action == models.Rejected {
		p.stats.Rejections++
		return models.Rejected
	}
	if sel.Explored {
		p.stats.Explorations++
	} else {
		p.stats.Exploitations++
	}

	p.current = &decisionState{state: state, action: sel.Action}
	return sel.Action
}

// Observe captures the post-decision snapshot once the task holds its destination
func (p *LearnedPolicy) Observe(task *models.Task, node int) {
	if p.current == nil || p.current.action != node {
		return
	}
	nodes := p.registry.Nodes()
	if node >= len(nodes) {
		return
	}
	p.pending = &pendingExperience{
		state:    p.current.state,
		action:   node,
		snapshot: p.featurizer.Featurize(task),
		node:     nodeSnapshot(nodes[node]),
		task:     *task,
	}
	p.current = nil
}

// MarkTerminal stores the outstanding experience as terminal
func (p *LearnedPolicy) MarkTerminal() {
	if p.pending == nil {
		return
	}
	p.completePending(p.pending.snapshot, true)
}

func (p *LearnedPolicy) completePending(next FeatureVector, terminal bool) {
	if p.pending == nil {
		return
	}
	pd := p.pending
	p.pending = nil

	reward := p.reward(RewardInput{
		Snapshot:    pd.snapshot,
		Node:        pd.node,
		Task:        pd.task,
		FailureRate: p.metrics.FailureRate(),
		TasksSent:   p.metrics.TasksSent(),
		TasksFailed: p.metrics.TasksFailed(),
	})
	p.buffer.Add(Experience{
		State:     pd.state,
		Action:    pd.action,
		Reward:    reward,
		NextState: next.Clone(),
		Terminal:  terminal,
	})
	p.stats.Experiences++
	p.stats.LastReward = reward
	p.stats.BufferSize = p.buffer.Len()

	p.maybeTrain()
}

// ShouldTrain reports whether a training round is due
func (p *LearnedPolicy) ShouldTrain() bool {
	if p.buffer.Len() <= p.hp.MinBufferSize {
		return false
	}
	return isMultiple(p.clock.Now(), p.hp.TrainInterval)
}

func (p *LearnedPolicy) maybeTrain() {
	if !p.ShouldTrain() {
		return
	}
	batch, err := p.buffer.Sample(p.hp.BatchSize)
	if err != nil {
		p.logger.Warn("skipping training round", "error", err)
		return
	}
	loss, err := p.trainer.Train(batch)
	if err != nil {
		p.logger.Error("training round failed", "error", err)
		return
	}
	p.stats.TrainingRounds = p.trainer.Rounds()
	p.stats.TargetSyncs = p.trainer.Syncs()
	p.stats.LastLoss = loss
	p.logger.Debug("training round", "time", p.clock.Now(), "loss", loss, "rounds", p.stats.TrainingRounds)
}

func isMultiple(now, interval float64) bool {
	return math.Abs(math.Remainder(now, interval)) < 1e-9
}

// Epsilon returns the current exploration probability
func (p *LearnedPolicy) Epsilon() float64 {
	return p.selector.Epsilon()
}

// SetEpsilon overrides the exploration probability
func (p *LearnedPolicy) SetEpsilon(epsilon float64) {
	p.selector.SetEpsilon(epsilon)
	p.stats.Epsilon = epsilon
}

// Stats returns a snapshot of the learning counters
func (p *LearnedPolicy) Stats() Stats {
	s := p.stats
	s.BufferSize = p.buffer.Len()
	s.Epsilon = p.selector.Epsilon()
	return s
}

// Buffer returns the replay buffer
func (p *LearnedPolicy) Buffer() *ReplayBuffer {
	return p.buffer
}

// Online returns the online value function
func (p *LearnedPolicy) Online() ValueFunction {
	return p.online
}

// Target returns the target value function
func (p *LearnedPolicy) Target() ValueFunction {
	return p.target
}
