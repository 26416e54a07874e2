package learning

import (
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/models"
	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// Featurizer builds state vectors from the node registry and run metrics.
// Output depends only on its inputs.
type Featurizer struct {
	schema   FeatureSchema
	registry policy.NodeRegistry
	metrics  MetricsSource
}

// NewFeaturizer creates a featurizer for the given schema
func NewFeaturizer(schema FeatureSchema, registry policy.NodeRegistry, metrics MetricsSource) *Featurizer {
	return &Featurizer{
		schema:   schema,
		registry: registry,
		metrics:  metrics,
	}
}

// Schema returns the configured schema
func (f *Featurizer) Schema() FeatureSchema {
	return f.schema
}

// Size returns the length of the produced vectors
func (f *Featurizer) Size() int {
	return f.schema.Size()
}

// Featurize computes the state vector for the given task
func (f *Featurizer) Featurize(task *models.Task) FeatureVector {
	nodes := f.registry.Nodes()
	var ram, storage, queue, mips float64
	for _, n := range nodes {
		ram += n.AvailableRAM
		storage += n.AvailableStorage
		queue += float64(n.PendingTasks)
		mips += n.TotalMIPS
	}
	if count := float64(len(nodes)); count > 0 {
		ram /= count
		storage /= count
		queue /= count
		mips /= count
	}

	fv := make(FeatureVector, f.schema.Size())
	fv[featRAM] = ram
	fv[featCPU] = f.metrics.CPUUtilization()
	fv[featStorage] = storage

	switch f.schema {
	case COMPACT_SCHEMA:
		fv[compactQueue] = queue
		fv[compactFailureRate] = f.metrics.FailureRate()
	case EXTENDED_SCHEMA:
		fv[extendedMIPS] = mips
		if task != nil {
			fv[extendedLatency] = task.MaxLatency
			fv[extendedFileSize] = task.FileSizeBits
		}
		fv[extendedFailedTasks] = float64(f.metrics.TasksFailed())
	}
	return fv
}
