package policy

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// RandomLayeredPolicy first draws an architecture layer uniformly, then a node in it.
// Cloud and edge draws try the layer's representative (its first node); a mist draw
// falls back to least-loaded scanning over mist nodes only.
// Layer membership is computed from the registry once, at construction.
type RandomLayeredPolicy struct {
	env    *Environment
	layers []models.Layer
	groups map[models.Layer][]int
}

// NewRandomLayeredPolicy creates a layer-aware random placement policy
func NewRandomLayeredPolicy(env *Environment) *RandomLayeredPolicy {
	p := &RandomLayeredPolicy{
		env:    env,
		groups: make(map[models.Layer][]int),
	}
	nodes := env.Registry.Nodes()
	for i := 0; i < env.size(); i++ {
		layer := nodes[i].Layer()
		p.groups[layer] = append(p.groups[layer], i)
	}
	for _, layer := range models.ValidLayers() {
		if len(p.groups[layer]) > 0 {
			p.layers = append(p.layers, layer)
		}
	}
	return p
}

// Name returns the policy name
func (p *RandomLayeredPolicy) Name() string { return "RANDOM_LAYERED" }

// CommitsLoad implements Committer
func (p *RandomLayeredPolicy) CommitsLoad() {}

// Layers returns the distinct layers present in the registry
func (p *RandomLayeredPolicy) Layers() []models.Layer {
	return append([]models.Layer(nil), p.layers...)
}

// FindNode picks a layer then a node
func (p *RandomLayeredPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	if len(p.layers) == 0 {
		return models.Rejected
	}
	layer := p.layers[p.env.Rand.Intn(len(p.layers))]
	members := p.groups[layer]

	if layer == models.MIST_LAYER {
		best := leastLoaded(p.env, task, allowed, members)
		if best == models.Rejected {
			return models.Rejected
		}
		return p.env.commit(best)
	}

	representative := members[0]
	if !p.env.feasible(task, representative, allowed) {
		return models.Rejected
	}
	return p.env.commit(representative)
}
