package learning

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// LinearQModel is a linear action-value approximator Q(s, a) = W[a] . x(s).
// Inputs are squashed with sign(v)*log(1+|v|) and prefixed with a bias term.
// Fit uses a normalised least-mean-squares step, so the step size does not
// depend on the magnitude of the raw features.
type LinearQModel struct {
	features     int
	actions      int
	learningRate float64
	weights      *mat.Dense // actions x (features+1)
}

// NewLinearQModel creates a model with small random initial weights
func NewLinearQModel(features, actions int, learningRate float64, rng policy.Rand) *LinearQModel {
	m := &LinearQModel{
		features:     features,
		actions:      actions,
		learningRate: learningRate,
		weights:      mat.NewDense(actions, features+1, nil),
	}
	if rng != nil {
		for a := 0; a < actions; a++ {
			for f := 0; f <= features; f++ {
				m.weights.Set(a, f, (rng.Float64()-0.5)*0.01)
			}
		}
	}
	return m
}

// Features returns the input dimension
func (m *LinearQModel) Features() int { return m.features }

// Actions returns the output dimension
func (m *LinearQModel) Actions() int { return m.actions }

// Clone returns an independent copy of the model
func (m *LinearQModel) Clone() *LinearQModel {
	c := &LinearQModel{
		features:     m.features,
		actions:      m.actions,
		learningRate: m.learningRate,
		weights:      mat.DenseCopyOf(m.weights),
	}
	return c
}

func (m *LinearQModel) input(state FeatureVector) (*mat.VecDense, error) {
	if len(state) != m.features {
		return nil, fmt.Errorf("state has %d features, model expects %d", len(state), m.features)
	}
	x := mat.NewVecDense(m.features+1, nil)
	x.SetVec(0, 1)
	for i, v := range state {
		x.SetVec(i+1, math.Copysign(math.Log1p(math.Abs(v)), v))
	}
	return x, nil
}

// Predict implements ValueFunction
func (m *LinearQModel) Predict(state FeatureVector) ([]float64, error) {
	x, err := m.input(state)
	if err != nil {
		return nil, err
	}
	var out mat.VecDense
	out.MulVec(m.weights, x)
	return out.RawVector().Data, nil
}

// Fit implements ValueFunction. Outputs whose target equals the current
// prediction receive no update.
func (m *LinearQModel) Fit(state FeatureVector, target []float64) error {
	if len(target) != m.actions {
		return fmt.Errorf("target has %d values, model has %d actions", len(target), m.actions)
	}
	x, err := m.input(state)
	if err != nil {
		return err
	}
	var pred mat.VecDense
	pred.MulVec(m.weights, x)

	residual := mat.NewVecDense(m.actions, nil)
	residual.SubVec(mat.NewVecDense(m.actions, append([]float64(nil), target...)), &pred)

	norm := mat.Dot(x, x)
	m.weights.RankOne(m.weights, m.learningRate/(1e-8+norm), residual, x)
	return nil
}

// CopyParamsFrom implements ValueFunction
func (m *LinearQModel) CopyParamsFrom(other ValueFunction) error {
	src, ok := other.(*LinearQModel)
	if !ok {
		return fmt.Errorf("cannot copy parameters from %T", other)
	}
	if src.features != m.features || src.actions != m.actions {
		return fmt.Errorf("shape mismatch: %dx%d vs %dx%d", src.actions, src.features, m.actions, m.features)
	}
	m.weights.Copy(src.weights)
	return nil
}

type linearModelJSON struct {
	Features     int       `json:"features"`
	Actions      int       `json:"actions"`
	LearningRate float64   `json:"learning_rate"`
	Weights      []float64 `json:"weights"`
}

// MarshalJSON serialises the model parameters
func (m *LinearQModel) MarshalJSON() ([]byte, error) {
	raw := mat.DenseCopyOf(m.weights).RawMatrix()
	return json.Marshal(linearModelJSON{
		Features:     m.features,
		Actions:      m.actions,
		LearningRate: m.learningRate,
		Weights:      raw.Data,
	})
}

// UnmarshalJSON restores serialised model parameters
func (m *LinearQModel) UnmarshalJSON(data []byte) error {
	var v linearModelJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to deserialize model: %w", err)
	}
	if v.Features <= 0 || v.Actions <= 0 || len(v.Weights) != v.Actions*(v.Features+1) {
		return fmt.Errorf("invalid model shape %dx%d with %d weights", v.Actions, v.Features, len(v.Weights))
	}
	m.features = v.Features
	m.actions = v.Actions
	m.learningRate = v.LearningRate
	m.weights = mat.NewDense(v.Actions, v.Features+1, v.Weights)
	return nil
}
