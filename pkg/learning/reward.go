package learning

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// RewardInput is everything a reward function may look at.
// Snapshot is the state captured right after the action was applied.
type RewardInput struct {
	Snapshot    FeatureVector
	Node        models.ComputingNode
	Task        models.Task
	FailureRate float64
	TasksSent   int
	TasksFailed int
}

// RewardFunc computes a scalar signal for a decision
type RewardFunc func(in RewardInput) float64

// CompactReward scores a decision from a compact-schema snapshot
func CompactReward(in RewardInput) float64 {
	s := in.Snapshot
	reward := 100.0 -
		s[featRAM]/1000 -
		s[featCPU] -
		s[featStorage]/10000 -
		s[compactQueue]*3

	if in.FailureRate <= s[compactFailureRate] {
		reward += 20
	} else {
		reward -= 50
	}
	return reward
}

// ExtendedReward scores a decision by comparing the chosen node with the averages
// of an extended-schema snapshot
type ExtendedReward struct {
	LatencyWeight float64
}

// Reward implements RewardFunc
func (r ExtendedReward) Reward(in RewardInput) float64 {
	s := in.Snapshot
	node := in.Node
	reward := 100.0

	reward += bonus(node.AvailableRAM >= s[featRAM], 20, -30)
	reward += bonus(node.AvgCPUUtilization <= s[featCPU], 15, -15)
	reward += bonus(node.AvailableStorage >= s[featStorage], 10, -20)
	reward += bonus(node.TotalMIPS >= s[extendedMIPS], 30, -25)
	reward += bonus(node.AvailableStorage >= in.Task.FileSizeMB(), 5, -30)
	reward += bonus(node.MaxLatencyToDevice <= s[extendedLatency], r.LatencyWeight, -r.LatencyWeight)
	reward += bonus(float64(in.TasksFailed) <= 0.15*float64(in.TasksSent), 20, -30)

	return reward
}

func bonus(ok bool, reward, penalty float64) float64 {
	if ok {
		return reward
	}
	return penalty
}
