// Tracks run-wide bandit performance such as exposures, clicks, expected regret
// and the arm mix of the final recommendation.

package sim

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about a backtest for final reporting.
type Metrics struct {
	Periods        int     // Number of simulated periods completed
	TotalAssigned  int     // Markings created across all periods
	TotalExposures int     // Exposures joined against markings
	TotalDropped   int     // Selected clients without a marking
	TotalClicks    int     // Simulated clicks
	ExpectedRegret float64 // Σ (best p − shown p) over exposures

	PeriodCTR []float64 // click-through rate per period

	ArmExposures        map[ArmID]int // arm → exposures
	ArmClicks           map[ArmID]int // arm → clicks
	FinalRecommendation map[ArmID]int // arm → clients recommended it after the last period
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ArmExposures:        make(map[ArmID]int),
		ArmClicks:           make(map[ArmID]int),
		FinalRecommendation: make(map[ArmID]int),
	}
}

// ClickThroughRate returns overall clicks per exposure.
func (m *Metrics) ClickThroughRate() float64 {
	if m.TotalExposures == 0 {
		return 0
	}
	return float64(m.TotalClicks) / float64(m.TotalExposures)
}

// PeriodCTRStats returns the mean and standard deviation of per-period CTR.
// The standard deviation is 0 with fewer than two periods.
func (m *Metrics) PeriodCTRStats() (mean, stdDev float64) {
	switch len(m.PeriodCTR) {
	case 0:
		return 0, 0
	case 1:
		return m.PeriodCTR[0], 0
	}
	return stat.MeanStdDev(m.PeriodCTR, nil)
}

// RecommendationShare returns each arm's share of the final recommendation.
func (m *Metrics) RecommendationShare() map[ArmID]float64 {
	arms := m.recommendedArms()
	counts := make([]float64, len(arms))
	for i, a := range arms {
		counts[i] = float64(m.FinalRecommendation[a])
	}
	share := make(map[ArmID]float64, len(arms))
	total := floats.Sum(counts)
	if total == 0 {
		return share
	}
	floats.Scale(1/total, counts)
	for i, a := range arms {
		share[a] = counts[i]
	}
	return share
}

func (m *Metrics) recommendedArms() []ArmID {
	arms := make([]ArmID, 0, len(m.FinalRecommendation))
	for a := range m.FinalRecommendation {
		arms = append(arms, a)
	}
	slices.Sort(arms)
	return arms
}

// Print displays aggregated metrics at the end of the backtest.
func (m *Metrics) Print() {
	fmt.Println("=== Backtest Metrics ===")
	fmt.Printf("Periods              : %d\n", m.Periods)
	fmt.Printf("Clients Marked       : %d\n", m.TotalAssigned)
	fmt.Printf("Exposures            : %d\n", m.TotalExposures)
	fmt.Printf("Dropped (unmarked)   : %d\n", m.TotalDropped)
	fmt.Printf("Clicks               : %d\n", m.TotalClicks)
	if m.TotalExposures > 0 {
		mean, sd := m.PeriodCTRStats()
		fmt.Printf("Click-Through Rate   : %.4f\n", m.ClickThroughRate())
		fmt.Printf("Per-Period CTR       : %.4f ± %.4f\n", mean, sd)
		fmt.Printf("Expected Regret      : %.2f clicks\n", m.ExpectedRegret)
	}
	share := m.RecommendationShare()
	if len(share) > 0 {
		fmt.Println("=== Final Recommendation ===")
		for _, a := range m.recommendedArms() {
			fmt.Printf("arm %-4d: %8d clients (%.2f%%)\n", a, m.FinalRecommendation[a], 100*share[a])
		}
	}
}
