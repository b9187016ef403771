package cmd

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mab-sim/mab-sim/sim"
)

// writeMetricsTextfile exports run metrics for the node-exporter textfile collector,
// the usual way batch jobs hand results to Prometheus.
func writeMetricsTextfile(path, runID string, m *sim.Metrics) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"run_id": runID}

	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mabsim", Name: name, Help: help, ConstLabels: labels,
		})
		g.Set(v)
		reg.MustRegister(g)
	}
	gauge("periods", "Simulated periods completed.", float64(m.Periods))
	gauge("assigned_total", "Markings created.", float64(m.TotalAssigned))
	gauge("exposures_total", "Exposures joined against markings.", float64(m.TotalExposures))
	gauge("dropped_total", "Selected clients without a marking.", float64(m.TotalDropped))
	gauge("clicks_total", "Simulated clicks.", float64(m.TotalClicks))
	gauge("click_through_rate", "Clicks per exposure.", m.ClickThroughRate())
	gauge("expected_regret", "Expected clicks lost against always showing the best arm.", m.ExpectedRegret)

	armVec := func(name, help string) *prometheus.GaugeVec {
		v := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mabsim", Name: name, Help: help, ConstLabels: labels,
		}, []string{"arm"})
		reg.MustRegister(v)
		return v
	}
	exposures := armVec("arm_exposures", "Exposures per arm.")
	clicks := armVec("arm_clicks", "Clicks per arm.")
	share := armVec("arm_recommendation_share", "Share of clients recommended each arm after the last period.")
	for arm, n := range m.ArmExposures {
		exposures.WithLabelValues(strconv.Itoa(int(arm))).Set(float64(n))
	}
	for arm, n := range m.ArmClicks {
		clicks.WithLabelValues(strconv.Itoa(int(arm))).Set(float64(n))
	}
	for arm, s := range m.RecommendationShare() {
		share.WithLabelValues(strconv.Itoa(int(arm))).Set(s)
	}

	return prometheus.WriteToTextfile(path, reg)
}
