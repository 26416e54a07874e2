package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/orchestrator"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
algorithm: LEARNED_V2
seed: 42
learning:
  epsilon_decay: 0.99
  target_sync_every: 5
simulation:
  duration: 50
  allowed_layers: [edge, mist]
nodes:
  - {id: 0, name: e0, type: edge_datacenter, ram: 4096, storage: 10000, mips: 20000, cores: 4}
  - {id: 1, name: d0, type: edge_device, ram: 1024, storage: 4000, mips: 4000, cores: 2}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "LEARNED_V2", cfg.Algorithm)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.99, cfg.Learning.EpsilonDecay)
	assert.Equal(t, 5, cfg.Learning.TargetSyncEvery)
	assert.Equal(t, 1.0, cfg.Learning.Epsilon, "unset keys keep their defaults")
	assert.Equal(t, 16, cfg.Learning.BatchSize)
	assert.Equal(t, 50.0, cfg.Simulation.Duration)
	require.Len(t, cfg.Nodes, 2)
	assert.Equal(t, models.EDGE_DEVICE, cfg.Nodes[1].Type)
	assert.Equal(t, 4000.0, cfg.Nodes[1].TotalMIPS)

	oc, err := cfg.Orchestrator()
	require.NoError(t, err)
	assert.Equal(t, []models.Layer{models.EDGE_LAYER, models.MIST_LAYER}, oc.AllowedLayers)
}

func TestUnknownAlgorithmFailsAtOrchestratorConstruction(t *testing.T) {
	path := writeConfig(t, "algorithm: FOO\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	oc, err := cfg.Orchestrator()
	require.NoError(t, err)
	assert.Equal(t, "FOO", oc.Algorithm)

	_, err = orchestrator.ParseAlgorithm(oc.Algorithm)
	assert.True(t, orchestrator.IsConfigurationError(err))
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(c *Config){
		"layer":    func(c *Config) { c.Simulation.AllowedLayers = []string{"fog"} },
		"duration": func(c *Config) { c.Simulation.Duration = 0 },
		"range":    func(c *Config) { c.Simulation.TaskLength = Range{Min: 10, Max: 1} },
		"learning": func(c *Config) { c.Learning.Gamma = 2 },
		"nodes":    func(c *Config) { c.Nodes = nil },
		"smooth":   func(c *Config) { c.Simulation.CPUSmoothing = 1.5 },
		"node":     func(c *Config) { c.Nodes[0].Type = "satellite" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
