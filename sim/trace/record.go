// Package trace provides per-period decision recording for bandit backtests.
// This package has no dependencies on sim/; it stores pure data types keyed by
// plain integer arm ids.
package trace

import "time"

// PeriodRecord captures what happened in one simulated period.
type PeriodRecord struct {
	Period   int
	Date     time.Time
	Policy   string
	Assigned int // clients marked
	Selected int // clients drawn for exposure
	Exposed  int // selected clients that joined a marking
	Dropped  int // selected clients with no marking
	Clicks   int

	ArmAssignments map[int]int // arm id → clients marked with it
	ArmExposures   map[int]int // arm id → exposures
	ArmClicks      map[int]int // arm id → clicks

	// ExpectedRegret is Σ over exposures of (best true probability − shown arm's true
	// probability). Evaluation only; computed from the oracle.
	ExpectedRegret float64
}

// ClickThroughRate returns clicks per exposure, or 0 with no exposures.
func (r PeriodRecord) ClickThroughRate() float64 {
	if r.Exposed == 0 {
		return 0
	}
	return float64(r.Clicks) / float64(r.Exposed)
}
