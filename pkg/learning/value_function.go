package learning

// ValueFunction approximates the value of every action in a state
type ValueFunction interface {
	// Predict returns one value per action
	Predict(state FeatureVector) ([]float64, error)
	// Fit performs one fitting step of state towards target
	Fit(state FeatureVector, target []float64) error
	// CopyParamsFrom overwrites the parameters with those of other
	CopyParamsFrom(other ValueFunction) error
}
