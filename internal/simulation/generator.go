package simulation

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/config"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// Generator produces reproducible random tasks
type Generator struct {
	cfg     config.SimulationConfig
	rng     *rand.Rand
	origins []int
}

// NewGenerator creates a generator. Tasks originate from mist nodes, or node 0 when there are none.
func NewGenerator(cfg config.SimulationConfig, registry *Registry, seed int64) *Generator {
	var origins []int
	for i, n := range registry.Nodes() {
		if n.Layer() == models.MIST_LAYER {
			origins = append(origins, i)
		}
	}
	if len(origins) == 0 {
		origins = []int{0}
	}
	return &Generator{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		origins: origins,
	}
}

func (g *Generator) sample(r config.Range) float64 {
	return r.Min + g.rng.Float64()*(r.Max-r.Min)
}

// Next creates a task arriving at time now
func (g *Generator) Next(now float64) *models.Task {
	id := uuid.Must(uuid.NewRandomFromReader(g.rng))
	task := models.NewTask(
		id.String(),
		g.sample(g.cfg.TaskLength),
		g.sample(g.cfg.TaskFileSize),
		g.sample(g.cfg.TaskLatency),
		g.origins[g.rng.Intn(len(g.origins))],
	)
	task.RAMNeed = g.sample(g.cfg.TaskRAM)
	task.CreatedAt = now
	return task
}
