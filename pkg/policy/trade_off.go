package policy

import (
	"math"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
)

// TradeOffWeights scale the estimated execution cost per node type
type TradeOffWeights struct {
	Cloud      float64 `json:"cloud" yaml:"cloud"`
	EdgeDevice float64 `json:"edge_device" yaml:"edge_device"`
	Other      float64 `json:"other" yaml:"other"`
}

// DefaultTradeOffWeights returns the standard layer weights
func DefaultTradeOffWeights() TradeOffWeights {
	return TradeOffWeights{
		Cloud:      1.8,
		EdgeDevice: 1.3,
		Other:      1.2,
	}
}

// For returns the weight applied to a node
func (w TradeOffWeights) For(node *models.ComputingNode) float64 {
	switch node.Type {
	case models.CLOUD:
		return w.Cloud
	case models.EDGE_DEVICE:
		return w.EdgeDevice
	default:
		return w.Other
	}
}

// TradeOffPolicy minimises (count+1) * weight * length / mipsPerCore over feasible nodes
type TradeOffPolicy struct {
	env     *Environment
	weights TradeOffWeights
}

// NewTradeOffPolicy creates a weighted trade-off placement policy
func NewTradeOffPolicy(env *Environment, weights TradeOffWeights) *TradeOffPolicy {
	return &TradeOffPolicy{env: env, weights: weights}
}

// Name returns the policy name
func (p *TradeOffPolicy) Name() string { return "TRADE_OFF" }

// CommitsLoad implements Committer
func (p *TradeOffPolicy) CommitsLoad() {}

// Cost returns the trade-off cost of placing task on node i
func (p *TradeOffPolicy) Cost(task *models.Task, i int) float64 {
	node := p.env.Registry.Nodes()[i]
	speed := node.MIPSPerCore()
	if speed <= 0 {
		return math.Inf(1)
	}
	return float64(p.env.Counter.Count(i)+1) * p.weights.For(node) * task.Length / speed
}

// FindNode returns the cheapest feasible node, first index on ties
func (p *TradeOffPolicy) FindNode(task *models.Task, allowed []models.Layer) int {
	best := models.Rejected
	bestCost := math.Inf(1)
	for i := 0; i < p.env.size(); i++ {
		if !p.env.feasible(task, i, allowed) {
			continue
		}
		cost := p.Cost(task, i)
		if best == models.Rejected || cost < bestCost {
			best = i
			bestCost = cost
		}
	}
	if best == models.Rejected {
		return models.Rejected
	}
	return p.env.commit(best)
}
