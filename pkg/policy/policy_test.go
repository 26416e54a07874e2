package policy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

type staticRegistry []*models.ComputingNode

func (r staticRegistry) Nodes() []*models.ComputingNode { return r }

func allFeasible() FeasibilityOracle {
	return FeasibilityFunc(func(*models.Task, *models.ComputingNode, []models.Layer) bool { return true })
}

func feasibleOnly(ids ...int) FeasibilityOracle {
	set := make(map[int]bool)
	for _, id := range ids {
		set[id] = true
	}
	return FeasibilityFunc(func(_ *models.Task, n *models.ComputingNode, _ []models.Layer) bool {
		return set[n.ID]
	})
}

func testNodes() staticRegistry {
	return staticRegistry{
		{ID: 0, Type: models.CLOUD, TotalMIPS: 40000, Cores: 8},
		{ID: 1, Type: models.EDGE_DATACENTER, TotalMIPS: 16000, Cores: 4},
		{ID: 2, Type: models.EDGE_DEVICE, TotalMIPS: 4000, Cores: 2},
		{ID: 3, Type: models.EDGE_DEVICE, TotalMIPS: 4000, Cores: 2},
	}
}

type PolicyTestSuite struct {
	suite.Suite
	nodes staticRegistry
	task  *models.Task
	all   []models.Layer
}

func (s *PolicyTestSuite) SetupTest() {
	s.nodes = testNodes()
	s.task = models.NewTask("t", 10000, 8e6, 10, 2)
	s.all = models.ValidLayers()
}

func (s *PolicyTestSuite) env(oracle FeasibilityOracle, seed int64) *Environment {
	return &Environment{
		Registry: s.nodes,
		Oracle:   oracle,
		Counter:  NewLoadCounter(len(s.nodes)),
		Rand:     rand.New(rand.NewSource(seed)),
	}
}

func (s *PolicyTestSuite) TestRoundRobinBalancesEquallyFeasibleNodes() {
	env := s.env(allFeasible(), 1)
	p := NewRoundRobinPolicy(env)

	k := 25
	for i := 0; i < len(s.nodes)*k; i++ {
		require.NotEqual(s.T(), models.Rejected, p.FindNode(s.task, s.all))
	}
	for i, c := range env.Counter.Counts() {
		assert.InDelta(s.T(), k, c, 1, "node %d count", i)
	}
}

func (s *PolicyTestSuite) TestRoundRobinThreeNodesSixTasks() {
	s.nodes = s.nodes[:3]
	env := s.env(allFeasible(), 1)
	p := NewRoundRobinPolicy(env)

	picks := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		picks = append(picks, p.FindNode(s.task, s.all))
	}
	assert.Equal(s.T(), []int{0, 1, 2, 0, 1, 2}, picks)
	assert.Equal(s.T(), []int{2, 2, 2}, env.Counter.Counts())
}

func (s *PolicyTestSuite) TestRoundRobinSkipsInfeasible() {
	env := s.env(feasibleOnly(1, 3), 1)
	p := NewRoundRobinPolicy(env)

	assert.Equal(s.T(), 1, p.FindNode(s.task, s.all))
	assert.Equal(s.T(), 3, p.FindNode(s.task, s.all))
	assert.Equal(s.T(), 1, p.FindNode(s.task, s.all))
	assert.Equal(s.T(), []int{0, 2, 0, 1}, env.Counter.Counts())
}

func (s *PolicyTestSuite) TestRoundRobinRejectsWhenNothingFeasible() {
	env := s.env(feasibleOnly(), 1)
	assert.Equal(s.T(), models.Rejected, NewRoundRobinPolicy(env).FindNode(s.task, s.all))
	assert.Equal(s.T(), 0, env.Counter.Total())
}

func (s *PolicyTestSuite) TestFirstOnly() {
	env := s.env(allFeasible(), 1)
	p := NewFirstOnlyPolicy(env)
	for i := 0; i < 5; i++ {
		assert.Equal(s.T(), 0, p.FindNode(s.task, s.all))
	}
	assert.Equal(s.T(), 5, env.Counter.Count(0))

	env = s.env(feasibleOnly(1, 2, 3), 1)
	p = NewFirstOnlyPolicy(env)
	for i := 0; i < 5; i++ {
		assert.Equal(s.T(), models.Rejected, p.FindNode(s.task, s.all))
	}
	assert.Equal(s.T(), 0, env.Counter.Total())
}

func (s *PolicyTestSuite) TestRandomSingleAttempt() {
	env := s.env(feasibleOnly(2), 7)
	p := NewRandomPolicy(env)

	accepted, rejected := 0, 0
	for i := 0; i < 400; i++ {
		switch p.FindNode(s.task, s.all) {
		case 2:
			accepted++
		case models.Rejected:
			rejected++
		default:
			s.T().Fatal("random policy returned an infeasible node")
		}
	}
	assert.Greater(s.T(), accepted, 0)
	assert.Greater(s.T(), rejected, 0, "single draw must reject when it misses the feasible node")
	assert.Equal(s.T(), accepted, env.Counter.Count(2))
}

func (s *PolicyTestSuite) TestRandomLayeredGroupsFromRegistry() {
	env := s.env(allFeasible(), 3)
	p := NewRandomLayeredPolicy(env)
	assert.Equal(s.T(), []models.Layer{models.CLOUD_LAYER, models.EDGE_LAYER, models.MIST_LAYER}, p.Layers())

	seen := make(map[int]int)
	for i := 0; i < 300; i++ {
		idx := p.FindNode(s.task, s.all)
		require.NotEqual(s.T(), models.Rejected, idx)
		seen[idx]++
	}
	assert.Len(s.T(), seen, 4)
	assert.InDelta(s.T(), seen[2], seen[3], 1, "mist draws must be balanced between mist nodes")
}

func (s *PolicyTestSuite) TestRandomLayeredWithoutCloud() {
	s.nodes = staticRegistry{
		{ID: 0, Type: models.EDGE_DEVICE, TotalMIPS: 1000, Cores: 1},
		{ID: 1, Type: models.EDGE_DEVICE, TotalMIPS: 1000, Cores: 1},
	}
	env := s.env(allFeasible(), 3)
	p := NewRandomLayeredPolicy(env)
	assert.Equal(s.T(), []models.Layer{models.MIST_LAYER}, p.Layers())
	assert.Equal(s.T(), 0, p.FindNode(s.task, s.all))
	assert.Equal(s.T(), 1, p.FindNode(s.task, s.all))
}

func (s *PolicyTestSuite) TestRandomLayeredRepresentativeInfeasible() {
	s.nodes = staticRegistry{
		{ID: 0, Type: models.CLOUD, TotalMIPS: 1000, Cores: 1},
		{ID: 1, Type: models.CLOUD, TotalMIPS: 1000, Cores: 1},
	}
	env := s.env(feasibleOnly(1), 3)
	p := NewRandomLayeredPolicy(env)
	assert.Equal(s.T(), models.Rejected, p.FindNode(s.task, s.all))
}

func (s *PolicyTestSuite) TestTradeOffPrefersCheapestAndIsDeterministic() {
	env := s.env(allFeasible(), 1)
	p := NewTradeOffPolicy(env, DefaultTradeOffWeights())

	// cloud: 1*1.8*10000/5000 = 3.6, edge: 1*1.2*10000/4000 = 3.0, device: 1*1.3*10000/2000 = 6.5
	assert.InDelta(s.T(), 3.6, p.Cost(s.task, 0), 1e-9)
	assert.InDelta(s.T(), 3.0, p.Cost(s.task, 1), 1e-9)
	assert.InDelta(s.T(), 6.5, p.Cost(s.task, 2), 1e-9)

	assert.Equal(s.T(), 1, p.FindNode(s.task, s.all))
	// edge now costs 6.0, cloud 3.6
	assert.Equal(s.T(), 0, p.FindNode(s.task, s.all))

	other := s.env(allFeasible(), 99)
	q := NewTradeOffPolicy(other, DefaultTradeOffWeights())
	assert.Equal(s.T(), 1, q.FindNode(s.task, s.all))
	assert.Equal(s.T(), 0, q.FindNode(s.task, s.all))
}

func (s *PolicyTestSuite) TestTradeOffTieGoesToFirst() {
	s.nodes = s.nodes[2:]
	s.nodes[0].ID, s.nodes[1].ID = 0, 1
	env := s.env(allFeasible(), 1)
	p := NewTradeOffPolicy(env, DefaultTradeOffWeights())
	assert.Equal(s.T(), 0, p.FindNode(s.task, s.all))
	assert.Equal(s.T(), 1, p.FindNode(s.task, s.all))
}

func TestPolicyTestSuite(t *testing.T) {
	suite.Run(t, new(PolicyTestSuite))
}

func TestLoadCounter(t *testing.T) {
	lc := NewLoadCounter(3)
	assert.True(t, lc.Increment(1))
	assert.True(t, lc.Increment(1))
	assert.False(t, lc.Increment(3), "nodes beyond the initial size are not tracked")
	assert.False(t, lc.Increment(-1))
	assert.Equal(t, []int{0, 2, 0}, lc.Counts())
	assert.Equal(t, 0, lc.Count(10))
	assert.Equal(t, 2, lc.Total())
	assert.Equal(t, 3, lc.Len())

	counts := lc.Counts()
	counts[0] = 99
	assert.Equal(t, 0, lc.Count(0), "Counts must return a copy")
}

func TestEnvironmentIgnoresUntrackedNodes(t *testing.T) {
	nodes := testNodes()
	env := &Environment{
		Registry: nodes,
		Oracle:   allFeasible(),
		Counter:  NewLoadCounter(2),
		Rand:     rand.New(rand.NewSource(1)),
	}
	p := NewRoundRobinPolicy(env)
	for i := 0; i < 6; i++ {
		idx := p.FindNode(models.NewTask("t", 1, 1, 1, 0), models.ValidLayers())
		assert.Less(t, idx, 2)
	}
}
