package sim

import (
	"fmt"
	"math/rand/v2"
)

// AssignArmsRandomly draws one arm per client uniformly at random with replacement.
// The result is order-aligned with clients. It has no side effects beyond advancing rng.
func AssignArmsRandomly(clients []ClientID, arms []ArmID, rng *rand.Rand) ([]ArmID, error) {
	if len(arms) == 0 {
		return nil, fmt.Errorf("assigning arms: empty arm set: %w", ErrInvalidInput)
	}
	assigned := make([]ArmID, len(clients))
	for i := range clients {
		assigned[i] = arms[rng.IntN(len(arms))]
	}
	return assigned, nil
}
