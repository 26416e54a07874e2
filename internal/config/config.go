package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/learning"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/orchestrator"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// Config is the scenario file of a simulation run
type Config struct {
	Name       string                   `yaml:"name"`
	Algorithm  string                   `yaml:"algorithm"`
	Seed       int64                    `yaml:"seed"`
	LogLevel   string                   `yaml:"log_level"`
	Database   DatabaseConfig           `yaml:"database"`
	Simulation SimulationConfig         `yaml:"simulation"`
	Learning   learning.Hyperparameters `yaml:"learning"`
	TradeOff   policy.TradeOffWeights   `yaml:"trade_off"`
	Nodes      []models.ComputingNode   `yaml:"nodes"`
}

// DatabaseConfig locates the analytics database
type DatabaseConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// SimulationConfig drives the reference simulation
type SimulationConfig struct {
	Duration      float64  `yaml:"duration"`       // time units
	TasksPerStep  int      `yaml:"tasks_per_step"` // task arrivals per time unit
	AllowedLayers []string `yaml:"allowed_layers"`
	TaskLength    Range    `yaml:"task_length"`    // million instructions
	TaskFileSize  Range    `yaml:"task_file_size"` // bits
	TaskLatency   Range    `yaml:"task_latency"`   // time units
	TaskRAM       Range    `yaml:"task_ram"`       // MB
	CPUSmoothing  float64  `yaml:"cpu_smoothing"`  // EWMA factor of node CPU utilization
}

// Range is an inclusive interval sampled uniformly
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Validate checks the interval bounds
func (r Range) Validate(name string) error {
	if r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("%s: invalid range [%f, %f]", name, r.Min, r.Max)
	}
	return nil
}

// Default returns a small cloud/edge/mist scenario
func Default() Config {
	return Config{
		Name:      "default",
		Algorithm: string(orchestrator.ROUND_ROBIN),
		Seed:      1,
		LogLevel:  "INFO",
		Database: DatabaseConfig{
			Path:    "analytics.db",
			Enabled: true,
		},
		Simulation: SimulationConfig{
			Duration:      300,
			TasksPerStep:  4,
			AllowedLayers: []string{"cloud", "edge", "mist"},
			TaskLength:    Range{Min: 1000, Max: 20000},
			TaskFileSize:  Range{Min: 1e5, Max: 8e6},
			TaskLatency:   Range{Min: 3, Max: 15},
			TaskRAM:       Range{Min: 16, Max: 512},
			CPUSmoothing:  0.5,
		},
		Learning: learning.DefaultHyperparameters(),
		TradeOff: policy.DefaultTradeOffWeights(),
		Nodes: []models.ComputingNode{
			{ID: 0, Name: "cloud-0", Type: models.CLOUD, AvailableRAM: 65536, AvailableStorage: 1e6, TotalMIPS: 200000, Cores: 32, MaxLatencyToDevice: 2},
			{ID: 1, Name: "edge-0", Type: models.EDGE_DATACENTER, AvailableRAM: 16384, AvailableStorage: 2e5, TotalMIPS: 60000, Cores: 8, MaxLatencyToDevice: 0.5},
			{ID: 2, Name: "device-0", Type: models.EDGE_DEVICE, AvailableRAM: 2048, AvailableStorage: 16000, TotalMIPS: 8000, Cores: 4},
			{ID: 3, Name: "device-1", Type: models.EDGE_DEVICE, AvailableRAM: 2048, AvailableStorage: 16000, TotalMIPS: 8000, Cores: 4},
		},
	}
}

// Load reads a YAML scenario file over the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the whole configuration. The algorithm name is resolved
// when the orchestrator is built.
func (c Config) Validate() error {
	if _, err := c.Layers(); err != nil {
		return err
	}
	if c.Simulation.Duration <= 0 {
		return fmt.Errorf("simulation duration must be positive")
	}
	if c.Simulation.TasksPerStep <= 0 {
		return fmt.Errorf("tasks_per_step must be positive")
	}
	if c.Simulation.CPUSmoothing <= 0 || c.Simulation.CPUSmoothing > 1 {
		return fmt.Errorf("cpu_smoothing must be in (0, 1]")
	}
	ranges := map[string]Range{
		"task_length":    c.Simulation.TaskLength,
		"task_file_size": c.Simulation.TaskFileSize,
		"task_latency":   c.Simulation.TaskLatency,
		"task_ram":       c.Simulation.TaskRAM,
	}
	for name, r := range ranges {
		if err := r.Validate(name); err != nil {
			return err
		}
	}
	if err := c.Learning.Validate(); err != nil {
		return fmt.Errorf("learning: %w", err)
	}
	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	for i := range c.Nodes {
		if err := c.Nodes[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Layers parses the allowed layers
func (c Config) Layers() ([]models.Layer, error) {
	layers := make([]models.Layer, 0, len(c.Simulation.AllowedLayers))
	for _, s := range c.Simulation.AllowedLayers {
		l, err := models.ParseLayer(s)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// Orchestrator returns the orchestrator part of the configuration
func (c Config) Orchestrator() (orchestrator.Config, error) {
	layers, err := c.Layers()
	if err != nil {
		return orchestrator.Config{}, err
	}
	return orchestrator.Config{
		Algorithm:     c.Algorithm,
		AllowedLayers: layers,
		TradeOff:      c.TradeOff,
		Learning:      c.Learning,
		Seed:          c.Seed,
	}, nil
}
