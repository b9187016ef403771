package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalPeriods     int
	TotalExposures   int
	TotalDropped     int
	TotalClicks      int
	ClickThroughRate float64
	CumulativeRegret float64
	MeanRegret       float64         // per exposure
	ArmDistribution  map[int]int     // arm id → exposures across all periods
	FinalArmShare    map[int]float64 // arm id → share of assignments in the last period
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ArmDistribution: make(map[int]int),
		FinalArmShare:   make(map[int]float64),
	}
	if st == nil {
		return summary
	}

	summary.TotalPeriods = len(st.Periods)
	for _, p := range st.Periods {
		summary.TotalExposures += p.Exposed
		summary.TotalDropped += p.Dropped
		summary.TotalClicks += p.Clicks
		summary.CumulativeRegret += p.ExpectedRegret
		for arm, n := range p.ArmExposures {
			summary.ArmDistribution[arm] += n
		}
	}
	if summary.TotalExposures > 0 {
		summary.ClickThroughRate = float64(summary.TotalClicks) / float64(summary.TotalExposures)
		summary.MeanRegret = summary.CumulativeRegret / float64(summary.TotalExposures)
	}

	if len(st.Periods) > 0 {
		last := st.Periods[len(st.Periods)-1]
		if last.Assigned > 0 {
			for arm, n := range last.ArmAssignments {
				summary.FinalArmShare[arm] = float64(n) / float64(last.Assigned)
			}
		}
	}
	return summary
}
