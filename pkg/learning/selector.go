package learning

import (
	"fmt"
	"math"
	"sort"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// ActionSelector chooses node indexes epsilon-greedily over a fixed action space
type ActionSelector struct {
	schema       FeatureSchema
	registry     policy.NodeRegistry
	oracle       policy.FeasibilityOracle
	rand         policy.Rand
	actions      int
	epsilon      float64
	epsilonMin   float64
	epsilonDecay float64
}

// Selection describes one action choice
type Selection struct {
	Action   int
	Explored bool
	Epsilon  float64 // value used for this choice, before decay
}

// NewActionSelector creates a selector whose action space is the current node count
func NewActionSelector(
	schema FeatureSchema,
	registry policy.NodeRegistry,
	oracle policy.FeasibilityOracle,
	rng policy.Rand,
	hp Hyperparameters,
) *ActionSelector {
	return &ActionSelector{
		schema:       schema,
		registry:     registry,
		oracle:       oracle,
		rand:         rng,
		actions:      len(registry.Nodes()),
		epsilon:      hp.Epsilon,
		epsilonMin:   hp.EpsilonMin,
		epsilonDecay: hp.EpsilonDecay,
	}
}

// Actions returns the size of the action space
func (as *ActionSelector) Actions() int {
	return as.actions
}

// Epsilon returns the current exploration probability
func (as *ActionSelector) Epsilon() float64 {
	return as.epsilon
}

// SetEpsilon overrides the exploration probability
func (as *ActionSelector) SetEpsilon(epsilon float64) {
	as.epsilon = epsilon
}

// Select picks an action for state. Epsilon decays after every call.
func (as *ActionSelector) Select(
	state FeatureVector,
	task *models.Task,
	allowed []models.Layer,
	q ValueFunction,
) (Selection, error) {
	sel := Selection{Epsilon: as.epsilon}
	defer as.decay()

	if as.rand.Float64() < as.epsilon {
		sel.Action = as.explore(task, allowed)
		sel.Explored = true
		return sel, nil
	}

	values, err := q.Predict(state)
	if err != nil {
		return sel, fmt.Errorf("predict action values: %w", err)
	}
	if len(values) < as.actions {
		return sel, fmt.Errorf("value function returned %d values for %d actions", len(values), as.actions)
	}
	values = values[:as.actions]

	switch as.schema {
	case EXTENDED_SCHEMA:
		sel.Action = as.bestRanked(values, task, allowed)
	default:
		best := argmax(values)
		if as.feasible(task, best, allowed) {
			sel.Action = best
		} else {
			sel.Action = as.explore(task, allowed)
			sel.Explored = true
		}
	}
	return sel, nil
}

func (as *ActionSelector) decay() {
	as.epsilon = math.Max(as.epsilonMin, as.epsilon*as.epsilonDecay)
}

// explore tries every action at most once in random order
func (as *ActionSelector) explore(task *models.Task, allowed []models.Layer) int {
	for _, action := range as.rand.Perm(as.actions) {
		if as.feasible(task, action, allowed) {
			return action
		}
	}
	return models.Rejected
}

// bestRanked returns the highest-valued feasible action, or 0 when none is feasible
func (as *ActionSelector) bestRanked(values []float64, task *models.Task, allowed []models.Layer) int {
	ranking := make([]int, len(values))
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return values[ranking[i]] > values[ranking[j]]
	})
	for _, action := range ranking {
		if as.feasible(task, action, allowed) {
			return action
		}
	}
	return 0
}

func (as *ActionSelector) feasible(task *models.Task, action int, allowed []models.Layer) bool {
	nodes := as.registry.Nodes()
	if action < 0 || action >= len(nodes) {
		return false
	}
	return as.oracle.IsFeasible(task, nodes[action], allowed)
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
