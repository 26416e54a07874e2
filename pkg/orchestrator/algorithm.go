package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm names a placement strategy
type Algorithm string

const (
	RANDOM         Algorithm = "RANDOM"
	RANDOM_LAYERED Algorithm = "RANDOM_LAYERED"
	FIRST_ONLY     Algorithm = "FIRST_ONLY"
	ROUND_ROBIN    Algorithm = "ROUND_ROBIN"
	TRADE_OFF      Algorithm = "TRADE_OFF"
	LEARNED        Algorithm = "LEARNED"
	LEARNED_V2     Algorithm = "LEARNED_V2"
)

// ValidAlgorithms returns every supported algorithm
func ValidAlgorithms() []Algorithm {
	return []Algorithm{RANDOM, RANDOM_LAYERED, FIRST_ONLY, ROUND_ROBIN, TRADE_OFF, LEARNED, LEARNED_V2}
}

// IsLearned reports whether the algorithm trains a value function
func (a Algorithm) IsLearned() bool {
	return a == LEARNED || a == LEARNED_V2
}

// ParseAlgorithm resolves a configured name. Unknown names yield a *ConfigurationError.
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := Algorithm(strings.ToUpper(strings.TrimSpace(name)))
	for _, a := range ValidAlgorithms() {
		if a == normalized {
			return a, nil
		}
	}
	return "", &ConfigurationError{
		Algorithm: name,
		Reason:    "unknown orchestration algorithm",
	}
}

// ConfigurationError reports an unusable orchestrator configuration. It is fatal.
type ConfigurationError struct {
	Algorithm string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %q", e.Reason, e.Algorithm)
}

// IsConfigurationError reports whether err wraps a *ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
