package sim

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// AssignmentPolicy decides which arm each client is marked with for a period.
// Implementations receive the outcome history the caller wants them to learn from.
type AssignmentPolicy interface {
	Name() string
	Assign(clients []ClientID, arms []ArmID, history []Outcome, rng *rand.Rand) ([]ArmID, error)
}

const (
	// PolicyRandom assigns arms uniformly at random.
	PolicyRandom = "random"
	// PolicyThompson assigns the Posterior Recommender's arm per client.
	PolicyThompson = "thompson"
)

// validPolicies maps accepted assignment policy names.
var validPolicies = map[string]bool{
	PolicyRandom:   true,
	PolicyThompson: true,
	"":             true, // empty defaults to thompson
}

// IsValidPolicy reports whether name is a recognised assignment policy.
func IsValidPolicy(name string) bool {
	return validPolicies[name]
}

// ValidPolicyNames returns the non-empty policy names, sorted.
func ValidPolicyNames() []string {
	names := make([]string, 0, len(validPolicies))
	for n := range validPolicies {
		if n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// NewAssignmentPolicy creates a policy by name. coldStart is only used by thompson.
func NewAssignmentPolicy(name string, coldStart ColdStart) (AssignmentPolicy, error) {
	if !IsValidColdStart(string(coldStart)) {
		return nil, fmt.Errorf("unknown cold start %q: %w", coldStart, ErrInvalidInput)
	}
	switch name {
	case PolicyRandom:
		return RandomAssignment{}, nil
	case PolicyThompson, "":
		return ThompsonAssignment{ColdStart: coldStart}, nil
	default:
		return nil, fmt.Errorf("unknown assignment policy %q; valid: %v: %w", name, ValidPolicyNames(), ErrInvalidInput)
	}
}

// RandomAssignment is the baseline policy. It ignores history.
type RandomAssignment struct{}

// Name implements AssignmentPolicy.
func (RandomAssignment) Name() string { return PolicyRandom }

// Assign implements AssignmentPolicy for RandomAssignment.
func (RandomAssignment) Assign(clients []ClientID, arms []ArmID, _ []Outcome, rng *rand.Rand) ([]ArmID, error) {
	return AssignArmsRandomly(clients, arms, rng)
}

// ThompsonAssignment marks each client with the arm recommended by Thompson Sampling
// over the supplied history. With no history at all there is no posterior to sample,
// so it falls back to random assignment.
type ThompsonAssignment struct {
	ColdStart ColdStart
}

// Name implements AssignmentPolicy.
func (ThompsonAssignment) Name() string { return PolicyThompson }

// Assign implements AssignmentPolicy for ThompsonAssignment.
func (p ThompsonAssignment) Assign(clients []ClientID, arms []ArmID, history []Outcome, rng *rand.Rand) ([]ArmID, error) {
	if len(history) == 0 {
		return AssignArmsRandomly(clients, arms, rng)
	}
	if len(clients) == 0 {
		if len(arms) == 0 {
			return nil, fmt.Errorf("assigning arms: empty arm set: %w", ErrInvalidInput)
		}
		return []ArmID{}, nil
	}
	return RecommendArms(history, arms, len(clients), rng, p.ColdStart)
}
