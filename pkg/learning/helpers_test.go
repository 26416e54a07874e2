package learning

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

type staticRegistry []*models.ComputingNode

func (r staticRegistry) Nodes() []*models.ComputingNode { return r }

type fixedMetrics struct {
	failureRate float64
	sent        int
	failed      int
	cpu         float64
}

func (m *fixedMetrics) FailureRate() float64    { return m.failureRate }
func (m *fixedMetrics) TasksSent() int          { return m.sent }
func (m *fixedMetrics) TasksFailed() int        { return m.failed }
func (m *fixedMetrics) CPUUtilization() float64 { return m.cpu }

type manualClock struct{ now float64 }

func (c *manualClock) Now() float64 { return c.now }

// stubValues always predicts the same values and records fitting calls
type stubValues struct {
	values  []float64
	fits    [][]float64
	copies  int
	predErr error
}

func (s *stubValues) Predict(FeatureVector) ([]float64, error) {
	if s.predErr != nil {
		return nil, s.predErr
	}
	return append([]float64(nil), s.values...), nil
}

func (s *stubValues) Fit(_ FeatureVector, target []float64) error {
	s.fits = append(s.fits, append([]float64(nil), target...))
	return nil
}

func (s *stubValues) CopyParamsFrom(ValueFunction) error {
	s.copies++
	return nil
}

func feasibleOnly(ids ...int) policy.FeasibilityOracle {
	set := make(map[int]bool)
	for _, id := range ids {
		set[id] = true
	}
	return policy.FeasibilityFunc(func(_ *models.Task, n *models.ComputingNode, _ []models.Layer) bool {
		return set[n.ID]
	})
}

func threeNodes() staticRegistry {
	return staticRegistry{
		{ID: 0, Type: models.CLOUD, AvailableRAM: 16000, AvailableStorage: 100000, TotalMIPS: 40000, Cores: 8},
		{ID: 1, Type: models.EDGE_DATACENTER, AvailableRAM: 8000, AvailableStorage: 50000, TotalMIPS: 16000, Cores: 4},
		{ID: 2, Type: models.EDGE_DEVICE, AvailableRAM: 2000, AvailableStorage: 8000, TotalMIPS: 4000, Cores: 2, PendingTasks: 3},
	}
}
