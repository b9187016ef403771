package sim

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ColdStart selects how the recommender treats an arm with no recorded success.
type ColdStart string

const (
	// ColdStartZero gives an arm with zero successes an all-zero sample vector, so it
	// can only be recommended through a tie at zero. This is the historical behaviour.
	ColdStartZero ColdStart = "zero"

	// ColdStartUniform draws Beta(successes+1, failures+1) for every arm, including
	// arms never seen to succeed (standard Beta-Bernoulli cold start).
	ColdStartUniform ColdStart = "uniform"
)

// validColdStarts maps accepted cold-start policy names.
var validColdStarts = map[ColdStart]bool{
	ColdStartZero:    true,
	ColdStartUniform: true,
	"":               true, // empty defaults to zero
}

// IsValidColdStart reports whether name is a recognised cold-start policy.
func IsValidColdStart(name string) bool {
	return validColdStarts[ColdStart(name)]
}

// ArmTally is the success/failure count for one arm. Both fields are non-negative.
type ArmTally struct {
	Successes int
	Failures  int
}

// Posterior returns the Beta(successes+1, failures+1) posterior under a uniform prior.
func (t ArmTally) Posterior(src rand.Source) distuv.Beta {
	return distuv.Beta{Alpha: float64(t.Successes + 1), Beta: float64(t.Failures + 1), Src: src}
}

// Tally counts clicked=1 rows as successes and clicked=0 rows as failures per arm.
// Rows with any other clicked value are ignored.
func Tally(rows []Outcome) map[ArmID]ArmTally {
	tallies := make(map[ArmID]ArmTally)
	for _, r := range rows {
		t := tallies[r.ArmID]
		switch r.Clicked {
		case 1:
			t.Successes++
		case 0:
			t.Failures++
		default:
			continue
		}
		tallies[r.ArmID] = t
	}
	return tallies
}

// sortedArms returns arms in ascending order, rejecting empty or repeated sets.
func sortedArms(arms []ArmID) ([]ArmID, error) {
	if len(arms) == 0 {
		return nil, fmt.Errorf("empty arm set: %w", ErrInvalidInput)
	}
	out := slices.Clone(arms)
	slices.Sort(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, fmt.Errorf("arm %d repeated: %w", out[i], ErrInvalidInput)
		}
	}
	return out, nil
}

// SamplePosteriors draws n samples per arm and stacks them into an n×K matrix whose
// columns follow the returned ascending arm order.
func SamplePosteriors(tallies map[ArmID]ArmTally, arms []ArmID, n int, rng *rand.Rand, coldStart ColdStart) (*mat.Dense, []ArmID, error) {
	order, err := sortedArms(arms)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling posteriors: %w", err)
	}
	if n <= 0 {
		return nil, nil, fmt.Errorf("sampling posteriors: client count must be positive, got %d: %w", n, ErrInvalidInput)
	}
	if !IsValidColdStart(string(coldStart)) {
		return nil, nil, fmt.Errorf("sampling posteriors: unknown cold start %q: %w", coldStart, ErrInvalidInput)
	}

	samples := mat.NewDense(n, len(order), nil)
	col := make([]float64, n)
	for j, arm := range order {
		t := tallies[arm]
		if t.Successes == 0 && coldStart != ColdStartUniform {
			clear(col)
		} else {
			beta := t.Posterior(rng)
			for i := range col {
				col[i] = beta.Rand()
			}
		}
		samples.SetCol(j, col)
	}
	return samples, order, nil
}

// RecommendArms applies the Thompson Sampling decision rule: it tallies history into
// per-arm posteriors, draws one sample per (client, arm) and recommends, for each of
// the n clients, the arm with the highest draw. Ties go to the lowest arm id.
//
// Returns ErrInvalidInput if arms is empty or n is not positive.
func RecommendArms(history []Outcome, arms []ArmID, n int, rng *rand.Rand, coldStart ColdStart) ([]ArmID, error) {
	samples, order, err := SamplePosteriors(Tally(history), arms, n, rng, coldStart)
	if err != nil {
		return nil, fmt.Errorf("recommending arms: %w", err)
	}
	recommended := make([]ArmID, n)
	for i := range recommended {
		recommended[i] = order[floats.MaxIdx(samples.RawRowView(i))]
	}
	return recommended, nil
}
