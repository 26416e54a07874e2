package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	db   *DB
	repo *Repository
}

func (s *RepositoryTestSuite) SetupTest() {
	db, err := NewDatabase(filepath.Join(s.T().TempDir(), "test.db"))
	s.Require().NoError(err)
	s.db = db
	s.repo = NewRepository(db)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *RepositoryTestSuite) createRun(id, algorithm string) {
	s.Require().NoError(s.repo.CreateRun(&Run{
		ID:        id,
		Name:      id,
		Algorithm: algorithm,
		StartTime: time.Now(),
		Status:    RUN_RUNNING,
	}))
}

func (s *RepositoryTestSuite) TestRunLifecycle() {
	s.createRun("r1", "ROUND_ROBIN")

	run, err := s.repo.GetRun("r1")
	s.Require().NoError(err)
	s.Equal(RUN_RUNNING, run.Status)
	s.Nil(run.EndTime)

	s.Require().NoError(s.repo.EndRun("r1", RUN_COMPLETED, RunTotals{TasksGenerated: 10, TasksAssigned: 8, TasksRejected: 2, SimulatedTime: 30}))
	run, err = s.repo.GetRun("r1")
	s.Require().NoError(err)
	s.Equal(RUN_COMPLETED, run.Status)
	s.NotNil(run.EndTime)
	s.Equal(8, run.TasksAssigned)
	s.Equal(2, run.TasksRejected)
	s.Equal(30.0, run.SimulatedTime)

	s.ErrorIs(s.repo.EndRun("missing", RUN_COMPLETED, RunTotals{}), ErrNotFound)
	_, err = s.repo.GetRun("missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestListRunsFiltersByAlgorithm() {
	s.createRun("a", "LEARNED")
	s.createRun("b", "ROUND_ROBIN")
	s.createRun("c", "LEARNED")

	all, err := s.repo.ListRuns("")
	s.Require().NoError(err)
	s.Len(all, 3)

	learned, err := s.repo.ListRuns("LEARNED")
	s.Require().NoError(err)
	s.Len(learned, 2)
}

func (s *RepositoryTestSuite) TestDecisionsAndSummary() {
	s.createRun("r1", "LEARNED")
	decisions := []Decision{
		{RunID: "r1", TaskID: "t1", Node: 0, NodeType: "cloud", SimTime: 1, Epsilon: 0.5},
		{RunID: "r1", TaskID: "t2", Node: 1, NodeType: "edge_device", SimTime: 2, Epsilon: 0.3},
		{RunID: "r1", TaskID: "t3", Node: 0, NodeType: "cloud", SimTime: 3, Epsilon: 0.1},
	}
	s.Require().NoError(s.repo.SaveDecisions(decisions))
	s.Require().NoError(s.repo.SaveDecisions(nil))
	s.Require().NoError(s.repo.SaveEvents([]Event{
		{RunID: "r1", EventType: EVENT_REJECTED, TaskID: "t4", Node: -1},
		{RunID: "r1", EventType: EVENT_FAILED, TaskID: "t2", Node: 1},
		{RunID: "r1", EventType: EVENT_REJECTED, TaskID: "t5", Node: -1},
	}))
	s.Require().NoError(s.repo.SaveLearningMetrics(&LearningMetrics{RunID: "r1", SimTime: 10, LastLoss: 4.5}))
	s.Require().NoError(s.repo.SaveLearningMetrics(&LearningMetrics{RunID: "r1", SimTime: 20, LastLoss: 2.5}))

	got, err := s.repo.GetDecisions("r1", 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("t1", got[0].TaskID)

	rejected, err := s.repo.GetEvents("r1", EVENT_REJECTED)
	s.Require().NoError(err)
	s.Len(rejected, 2)

	summary, err := s.repo.GetRunSummary("r1")
	s.Require().NoError(err)
	s.Equal(int64(3), summary.TotalDecisions)
	s.Require().Len(summary.PerNode, 2)
	s.Equal(NodeShare{Node: 0, NodeType: "cloud", Count: 2}, summary.PerNode[0])
	s.Equal(int64(2), summary.EventCounts[EVENT_REJECTED])
	s.Equal(int64(1), summary.EventCounts[EVENT_FAILED])
	s.InDelta(0.3, summary.AvgEpsilon, 1e-9)
	s.Equal(2.5, summary.LastLoss)
}

func (s *RepositoryTestSuite) TestRunSummaryReportsAggregateErrors() {
	s.createRun("r1", "ROUND_ROBIN")
	s.Require().NoError(s.repo.SaveDecisions([]Decision{{RunID: "r1", TaskID: "t1", Node: 0}}))

	summary, err := s.repo.GetRunSummary("r1")
	s.Require().NoError(err)
	s.Zero(summary.LastLoss, "no learning samples")

	s.Require().NoError(s.db.Migrator().DropColumn(&Decision{}, "Epsilon"))
	_, err = s.repo.GetRunSummary("r1")
	s.Require().Error(err)
	s.Contains(err.Error(), "epsilon")
}

func (s *RepositoryTestSuite) TestCheckpoints() {
	s.createRun("r1", "LEARNED")
	s.createRun("r2", "LEARNED")
	s.Require().NoError(s.repo.SaveCheckpoint(&ModelCheckpoint{RunID: "r1", Algorithm: "LEARNED", Online: "{}", Target: "{}"}))
	s.Require().NoError(s.repo.SaveCheckpoint(&ModelCheckpoint{RunID: "r2", Algorithm: "LEARNED", Online: `{"v":2}`, Target: "{}"}))

	latest, err := s.repo.GetLatestCheckpoint("", "LEARNED")
	s.Require().NoError(err)
	s.Equal("r2", latest.RunID)

	first, err := s.repo.GetLatestCheckpoint("r1", "LEARNED")
	s.Require().NoError(err)
	s.Equal("{}", first.Online)

	_, err = s.repo.GetLatestCheckpoint("", "LEARNED_V2")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteRunRemovesRelatedData() {
	s.createRun("r1", "LEARNED")
	s.Require().NoError(s.repo.SaveDecisions([]Decision{{RunID: "r1", TaskID: "t1"}}))
	s.Require().NoError(s.repo.SaveCheckpoint(&ModelCheckpoint{RunID: "r1", Algorithm: "LEARNED"}))

	s.Require().NoError(s.repo.DeleteRun("r1"))
	_, err := s.repo.GetRun("r1")
	s.ErrorIs(err, ErrNotFound)
	decisions, err := s.repo.GetDecisions("r1", 0)
	s.Require().NoError(err)
	s.Empty(decisions)

	s.ErrorIs(s.repo.DeleteRun("r1"), ErrNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
