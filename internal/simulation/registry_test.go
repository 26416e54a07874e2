package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlundberg/task-offloading-orchestrator/internal/config"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

func testNodes() []models.ComputingNode {
	return []models.ComputingNode{
		{Name: "cloud", Type: models.CLOUD, AvailableRAM: 1000, AvailableStorage: 1000, TotalMIPS: 4000, Cores: 4, MaxLatencyToDevice: 1},
		{Name: "device", Type: models.EDGE_DEVICE, AvailableRAM: 100, AvailableStorage: 10, TotalMIPS: 1000, Cores: 2},
	}
}

func testTask(id string) *models.Task {
	task := models.NewTask(id, 1000, 8e6, 5, 1)
	task.RAMNeed = 50
	return task
}

func TestRegistryAllocateRelease(t *testing.T) {
	reg, err := NewRegistry(testNodes(), 1)
	require.NoError(t, err)
	task := testTask("t1")

	require.NoError(t, reg.Allocate(1, task))
	n, _ := reg.Node(1)
	assert.Equal(t, 50.0, n.AvailableRAM)
	assert.Equal(t, 9.0, n.AvailableStorage)
	assert.Equal(t, 1, n.PendingTasks)
	assert.Equal(t, 50.0, n.AvgCPUUtilization)
	assert.Equal(t, 25.0, reg.CPUUtilization())

	require.NoError(t, reg.Allocate(1, testTask("t2")))
	assert.Error(t, reg.Allocate(1, testTask("t3")), "ram exhausted")

	require.NoError(t, reg.Release(1, task))
	require.NoError(t, reg.Release(1, task))
	assert.Equal(t, 100.0, n.AvailableRAM)
	assert.Equal(t, 0.0, n.AvgCPUUtilization)
	assert.Error(t, reg.Release(1, task))
	_, err = reg.Node(5)
	assert.Error(t, err)
}

func TestRegistryCopiesTemplates(t *testing.T) {
	templates := testNodes()
	reg, err := NewRegistry(templates, 1)
	require.NoError(t, err)
	require.NoError(t, reg.Allocate(0, testTask("t1")))
	assert.Equal(t, 1000.0, templates[0].AvailableRAM)
	assert.Equal(t, 1, reg.Nodes()[1].ID)

	templates[0].Type = "satellite"
	_, err = NewRegistry(templates, 1)
	assert.Error(t, err)
}

func TestRegistrySmoothsUtilization(t *testing.T) {
	reg, err := NewRegistry(testNodes(), 0.5)
	require.NoError(t, err)
	n, _ := reg.Node(1)

	require.NoError(t, reg.Allocate(1, testTask("t1")))
	assert.Equal(t, 50.0, n.AvgCPUUtilization, "first sample seeds the average")
	require.NoError(t, reg.Allocate(1, testTask("t2")))
	assert.Equal(t, 75.0, n.AvgCPUUtilization)
	require.NoError(t, reg.Release(1, testTask("t2")))
	assert.Equal(t, 62.5, n.AvgCPUUtilization)

	_, err = NewRegistry(testNodes(), 0)
	assert.Error(t, err)
}

func TestResourceOracle(t *testing.T) {
	reg, err := NewRegistry(testNodes(), 1)
	require.NoError(t, err)
	cloud, device := reg.Nodes()[0], reg.Nodes()[1]
	all := models.ValidLayers()
	oracle := ResourceOracle{}

	task := testTask("t1")
	assert.True(t, oracle.IsFeasible(task, cloud, all), "1 latency + 1 execution within 5")
	assert.True(t, oracle.IsFeasible(task, device, all), "2 execution within 5")
	assert.False(t, oracle.IsFeasible(task, cloud, []models.Layer{models.MIST_LAYER}))

	task.RAMNeed = 500
	assert.False(t, oracle.IsFeasible(task, device, all))

	slow := testTask("t2")
	slow.Length = 3000
	assert.True(t, oracle.IsFeasible(slow, cloud, all))
	assert.False(t, oracle.IsFeasible(slow, device, all), "6 execution exceeds 5")
}

func TestExecutionTimeSharesCores(t *testing.T) {
	node := &models.ComputingNode{TotalMIPS: 1000, Cores: 2}
	task := testTask("t1")
	assert.Equal(t, 2.0, ExecutionTime(task, node))
	node.PendingTasks = 4
	assert.Equal(t, 4.0, ExecutionTime(task, node))
}

func TestMetrics(t *testing.T) {
	reg, err := NewRegistry(testNodes(), 1)
	require.NoError(t, err)
	m := NewMetrics(reg)
	assert.Equal(t, 0.0, m.FailureRate())

	for i := 0; i < 4; i++ {
		m.TaskSent()
	}
	m.TaskRejected()
	m.TaskFailed()
	m.TaskCompleted()
	assert.Equal(t, 0.5, m.FailureRate())
	assert.Equal(t, 4, m.TasksSent())
	assert.Equal(t, 2, m.TasksFailed())
	assert.Equal(t, 1, m.TasksRejected())
	assert.Equal(t, 1, m.TasksCompleted())
}

func TestGeneratorIsReproducible(t *testing.T) {
	reg, err := NewRegistry(testNodes(), 1)
	require.NoError(t, err)
	cfg := config.Default().Simulation

	a, b := NewGenerator(cfg, reg, 3), NewGenerator(cfg, reg, 3)
	for i := 0; i < 10; i++ {
		ta, tb := a.Next(float64(i)), b.Next(float64(i))
		assert.Equal(t, ta.ID, tb.ID)
		assert.Equal(t, ta.Length, tb.Length)
		assert.Equal(t, 1, ta.OriginDevice, "only mist node")
		assert.Equal(t, float64(i), ta.CreatedAt)
		assert.GreaterOrEqual(t, ta.Length, cfg.TaskLength.Min)
		assert.LessOrEqual(t, ta.Length, cfg.TaskLength.Max)
		_, assigned := ta.Destination()
		assert.False(t, assigned)
	}
}
