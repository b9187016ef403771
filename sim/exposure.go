package sim

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// ExposureResult is the outcome of one exposure simulation.
type ExposureResult struct {
	Rows     []Exposure // stable-sorted by ArmID
	Selected int        // clients drawn from the population
	Dropped  int        // selected clients with no marking for the date
}

// SimulateExposures models partial reach: it draws m distinct clients uniformly
// without replacement from population, then inner-joins them against ledger on
// (date, client_id). Selected clients without a marking that day are dropped and
// counted in Dropped, since they cannot be attributed to an arm.
//
// Rows are stable-sorted by arm so same-arm exposures are contiguous.
//
// Returns ErrInvalidInput if the population is empty, m is not positive, m exceeds
// the population or the population repeats a client, and ErrJoinMismatch if the ledger is undated,
// empty or holds a different date.
func SimulateExposures(population []ClientID, m int, ledger *MarkingLedger, date time.Time, rng *rand.Rand) (ExposureResult, error) {
	if len(population) == 0 {
		return ExposureResult{}, fmt.Errorf("simulating exposures: empty population: %w", ErrInvalidInput)
	}
	if m <= 0 || m > len(population) {
		return ExposureResult{}, fmt.Errorf("simulating exposures: sample size %d outside [1, %d]: %w",
			m, len(population), ErrInvalidInput)
	}
	day := Day(date)
	if ledger == nil || !ledger.HasDate() {
		return ExposureResult{}, fmt.Errorf("simulating exposures: ledger has no date column: %w", ErrJoinMismatch)
	}
	if ledgerDay, _ := ledger.Date(); ledger.Len() == 0 || !ledgerDay.Equal(day) {
		return ExposureResult{}, fmt.Errorf("simulating exposures: no markings on %s: %w",
			day.Format(time.DateOnly), ErrJoinMismatch)
	}

	seen := make(map[ClientID]struct{}, len(population))
	for _, c := range population {
		if _, dup := seen[c]; dup {
			return ExposureResult{}, fmt.Errorf("simulating exposures: client %d repeated in population: %w",
				c, ErrInvalidInput)
		}
		seen[c] = struct{}{}
	}

	idxs := make([]int, m)
	sampleuv.WithoutReplacement(idxs, len(population), rng)
	selected := make([]ClientID, m)
	for i, idx := range idxs {
		selected[i] = population[idx]
	}

	rows := make([]Exposure, 0, m)
	for _, c := range selected {
		mark, ok := ledger.Lookup(c, day)
		if !ok {
			continue
		}
		rows = append(rows, Exposure{ClientID: c, ArmID: mark.ArmID, Date: day})
	}
	slices.SortStableFunc(rows, func(a, b Exposure) int { return cmp.Compare(a.ArmID, b.ArmID) })

	res := ExposureResult{Rows: rows, Selected: m, Dropped: m - len(rows)}
	if res.Dropped > 0 {
		logrus.Debugf("exposures on %s: dropped %d of %d selected clients without a marking",
			day.Format(time.DateOnly), res.Dropped, m)
	}
	return res, nil
}
