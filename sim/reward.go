package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// armPartition is the set of exposure rows shown one arm, carried by original index
// so draws can be written back without relying on row order.
type armPartition struct {
	arm  ArmID
	rows []int
}

// partitionByArm groups row indices by arm, with partitions in ascending arm order.
func partitionByArm(exposures []Exposure) []armPartition {
	byArm := make(map[ArmID][]int)
	for i, e := range exposures {
		byArm[e.ArmID] = append(byArm[e.ArmID], i)
	}
	arms := make([]ArmID, 0, len(byArm))
	for a := range byArm {
		arms = append(arms, a)
	}
	slices.Sort(arms)
	parts := make([]armPartition, len(arms))
	for i, a := range arms {
		parts[i] = armPartition{arm: a, rows: byArm[a]}
	}
	return parts
}

// ValidateClickProbabilities checks that every probability is a number in [0, 1].
func ValidateClickProbabilities(probs map[ArmID]float64) error {
	for arm, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("click probability for arm %d must be in [0, 1], got %v: %w", arm, p, ErrInvalidInput)
		}
	}
	return nil
}

// SimulateRewards is the click oracle. For every arm present in exposures it draws
// one Bernoulli(probs[arm]) batch covering all of that arm's rows, then returns one
// Outcome per exposure in the input order.
//
// probs is ground truth for simulation only; nothing derived from it may reach
// the recommender. Returns ErrInvalidInput if a probability is outside [0, 1] or an
// exposed arm has no probability.
func SimulateRewards(exposures []Exposure, probs map[ArmID]float64, rng *rand.Rand) ([]Outcome, error) {
	if err := ValidateClickProbabilities(probs); err != nil {
		return nil, fmt.Errorf("simulating rewards: %w", err)
	}
	parts := partitionByArm(exposures)
	for _, part := range parts {
		if _, ok := probs[part.arm]; !ok {
			return nil, fmt.Errorf("simulating rewards: no click probability for arm %d: %w", part.arm, ErrInvalidInput)
		}
	}

	outcomes := make([]Outcome, len(exposures))
	for i, e := range exposures {
		outcomes[i] = Outcome{ClientID: e.ClientID, ArmID: e.ArmID, Date: e.Date}
	}
	for _, part := range parts {
		clicks := drawBernoulli(probs[part.arm], len(part.rows), rng)
		for k, idx := range part.rows {
			outcomes[idx].Clicked = clicks[k]
		}
	}
	return outcomes, nil
}

// drawBernoulli returns n independent Bernoulli(p) draws as 0/1 values.
func drawBernoulli(p float64, n int, rng *rand.Rand) []int {
	d := distuv.Bernoulli{P: p, Src: rng}
	out := make([]int, n)
	for i := range out {
		out[i] = int(d.Rand())
	}
	return out
}
