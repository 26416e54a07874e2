package learning

import (
	"fmt"
)

// Trainer fits the online approximator against bootstrapped targets from a
// delayed target approximator
type Trainer struct {
	online    ValueFunction
	target    ValueFunction
	gamma     float64
	syncEvery int
	rounds    int
	syncs     int
	lastLoss  float64
}

// NewTrainer creates a trainer. The target is synchronised every syncEvery rounds.
func NewTrainer(online, target ValueFunction, gamma float64, syncEvery int) *Trainer {
	if syncEvery <= 0 {
		syncEvery = 1
	}
	return &Trainer{
		online:    online,
		target:    target,
		gamma:     gamma,
		syncEvery: syncEvery,
	}
}

// Target computes the bootstrapped learning target for one experience
func (t *Trainer) Target(exp Experience) (float64, error) {
	if exp.Terminal {
		return exp.Reward, nil
	}
	next, err := t.target.Predict(exp.NextState)
	if err != nil {
		return 0, fmt.Errorf("predict next state: %w", err)
	}
	if len(next) == 0 {
		return exp.Reward, nil
	}
	best := next[argmax(next)]
	return exp.Reward + t.gamma*best, nil
}

// Train performs one fitting step per experience and returns the mean squared
// error of the taken actions before the update
func (t *Trainer) Train(batch []Experience) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	loss := 0.0
	for i, exp := range batch {
		target, err := t.Target(exp)
		if err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		values, err := t.online.Predict(exp.State)
		if err != nil {
			return 0, fmt.Errorf("sample %d: predict state: %w", i, err)
		}
		if exp.Action < 0 || exp.Action >= len(values) {
			return 0, fmt.Errorf("sample %d: action %d outside %d outputs", i, exp.Action, len(values))
		}

		// only the taken action is supervised
		fitTarget := append([]float64(nil), values...)
		diff := target - values[exp.Action]
		loss += diff * diff
		fitTarget[exp.Action] = target

		if err := t.online.Fit(exp.State, fitTarget); err != nil {
			return 0, fmt.Errorf("sample %d: fit: %w", i, err)
		}
	}
	t.lastLoss = loss / float64(len(batch))
	t.rounds++

	if t.rounds%t.syncEvery == 0 {
		if err := t.target.CopyParamsFrom(t.online); err != nil {
			return t.lastLoss, fmt.Errorf("sync target: %w", err)
		}
		t.syncs++
	}
	return t.lastLoss, nil
}

// Rounds returns the number of completed training rounds
func (t *Trainer) Rounds() int { return t.rounds }

// Syncs returns the number of target synchronisations
func (t *Trainer) Syncs() int { return t.syncs }

// LastLoss returns the loss of the most recent round
func (t *Trainer) LastLoss() float64 { return t.lastLoss }
