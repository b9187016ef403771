package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mab-sim/mab-sim/sim/trace"
)

// PeriodSink receives each period's marking ledger and outcomes as they are produced,
// e.g. to persist them as partitions. Implemented by sim/store.
type PeriodSink interface {
	WritePeriod(period int, date time.Time, ledger *MarkingLedger, outcomes []Outcome) error
}

// Simulator runs a multi-period bandit backtest. Each period it assigns arms with
// the configured policy, builds the marking ledger, samples exposures, draws clicks
// from the oracle and appends the outcomes to History, which the next period's
// policy reads.
type Simulator struct {
	RunID   string
	Spec    *ExperimentSpec
	RNG     *PartitionedRNG
	History *History
	Metrics *Metrics
	Trace   *trace.SimulationTrace
	Sink    PeriodSink // optional

	policy    AssignmentPolicy
	coldStart ColdStart
	clients   []ClientID
	arms      []ArmID
	probs     map[ArmID]float64 // oracle; used for rewards and regret only
	bestProb  float64
	start     time.Time
}

// NewSimulator validates spec and builds a Simulator with an empty History.
func NewSimulator(spec *ExperimentSpec, traceConfig trace.TraceConfig) (*Simulator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	start, err := spec.Start()
	if err != nil {
		return nil, err
	}
	coldStart := ColdStart(spec.ColdStart)
	if coldStart == "" {
		coldStart = ColdStartZero
	}
	policy, err := NewAssignmentPolicy(spec.Policy, coldStart)
	if err != nil {
		return nil, err
	}
	probs := spec.ClickProbabilities()
	best := 0.0
	for _, p := range probs {
		best = max(best, p)
	}
	return &Simulator{
		RunID:     uuid.NewString(),
		Spec:      spec,
		RNG:       NewPartitionedRNG(NewSimulationKey(spec.Seed)),
		History:   NewHistory(),
		Metrics:   NewMetrics(),
		Trace:     trace.NewSimulationTrace(traceConfig),
		policy:    policy,
		coldStart: coldStart,
		clients:   spec.ClientIDs(),
		arms:      spec.ArmIDs(),
		probs:     probs,
		bestProb:  best,
		start:     start,
	}, nil
}

// Run executes every configured period, then computes the recommendation that
// would drive the next period. A failed period aborts the run.
func (s *Simulator) Run() error {
	logrus.Infof("run %s: %d clients, %d arms, %d periods, policy=%s, cold start=%s",
		s.RunID, len(s.clients), len(s.arms), s.Spec.Periods, s.policy.Name(), s.coldStart)

	for p := 0; p < s.Spec.Periods; p++ {
		if err := s.step(p); err != nil {
			logrus.Errorf("run %s: period %d failed: %v", s.RunID, p, err)
			return fmt.Errorf("period %d: %w", p, err)
		}
	}

	next := s.start.AddDate(0, 0, s.Spec.Periods)
	recommended, err := RecommendArms(s.historyFor(next), s.arms, len(s.clients),
		s.RNG.ForSubsystem(SubsystemPosterior), s.coldStart)
	if err != nil {
		return fmt.Errorf("final recommendation: %w", err)
	}
	for _, a := range recommended {
		s.Metrics.FinalRecommendation[a]++
	}
	logrus.Infof("run %s: complete, %d outcomes in history", s.RunID, s.History.Len())
	return nil
}

// historyFor returns the outcomes the policy may learn from before date.
func (s *Simulator) historyFor(date time.Time) []Outcome {
	if s.Spec.HistoryWindowDays <= 0 {
		return s.History.Rows()
	}
	return s.History.Window(date.AddDate(0, 0, -s.Spec.HistoryWindowDays), date.AddDate(0, 0, -1))
}

// step simulates one period.
func (s *Simulator) step(period int) error {
	date := s.start.AddDate(0, 0, period)

	assigned, err := s.policy.Assign(s.clients, s.arms, s.historyFor(date),
		s.RNG.ForSubsystem(SubsystemAssignment))
	if err != nil {
		return err
	}
	ledger, err := NewMarkingLedger(s.clients, assigned, &date)
	if err != nil {
		return err
	}
	m := s.Spec.Exposure.SampleSize(s.RNG.ForSubsystem(SubsystemSizing))
	exposures, err := SimulateExposures(s.clients, m, ledger, date, s.RNG.ForSubsystem(SubsystemExposure))
	if err != nil {
		return err
	}
	outcomes, err := SimulateRewards(exposures.Rows, s.probs, s.RNG.ForSubsystem(SubsystemReward))
	if err != nil {
		return err
	}
	s.History.Append(outcomes...)

	if s.Sink != nil {
		if err := s.Sink.WritePeriod(period, date, ledger, outcomes); err != nil {
			return fmt.Errorf("writing period: %w", err)
		}
	}

	s.record(period, date, assigned, exposures, outcomes)
	return nil
}

// record folds one period into Metrics and, when enabled, the trace.
func (s *Simulator) record(period int, date time.Time, assigned []ArmID, exposures ExposureResult, outcomes []Outcome) {
	rec := trace.PeriodRecord{
		Period:         period,
		Date:           date,
		Policy:         s.policy.Name(),
		Assigned:       len(assigned),
		Selected:       exposures.Selected,
		Exposed:        len(exposures.Rows),
		Dropped:        exposures.Dropped,
		ArmAssignments: make(map[int]int),
		ArmExposures:   make(map[int]int),
		ArmClicks:      make(map[int]int),
	}
	for _, a := range assigned {
		rec.ArmAssignments[int(a)]++
	}
	for _, o := range outcomes {
		rec.ArmExposures[int(o.ArmID)]++
		rec.ArmClicks[int(o.ArmID)] += o.Clicked
		rec.Clicks += o.Clicked
		rec.ExpectedRegret += s.bestProb - s.probs[o.ArmID]
		s.Metrics.ArmExposures[o.ArmID]++
		s.Metrics.ArmClicks[o.ArmID] += o.Clicked
	}

	s.Metrics.Periods++
	s.Metrics.TotalAssigned += rec.Assigned
	s.Metrics.TotalExposures += rec.Exposed
	s.Metrics.TotalDropped += rec.Dropped
	s.Metrics.TotalClicks += rec.Clicks
	s.Metrics.ExpectedRegret += rec.ExpectedRegret
	s.Metrics.PeriodCTR = append(s.Metrics.PeriodCTR, rec.ClickThroughRate())

	if s.Trace.Enabled() {
		s.Trace.RecordPeriod(rec)
	}
	logrus.Debugf("period %d (%s): policy=%s marked=%d exposed=%d dropped=%d clicks=%d",
		period, date.Format(time.DateOnly), rec.Policy, rec.Assigned, rec.Exposed, rec.Dropped, rec.Clicks)
}
