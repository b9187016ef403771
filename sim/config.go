package sim

import (
	"bytes"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ArmSpec declares one ad variant and its simulation-only true click probability.
type ArmSpec struct {
	ID               int     `yaml:"id" validate:"gte=0"`
	ClickProbability float64 `yaml:"click_probability" validate:"gte=0,lte=1"`
}

// ExposureSpec sizes the per-period exposure sample.
// Either Size is set (fixed), or Min and Max give a uniform draw from [Min, Max).
type ExposureSpec struct {
	Size int `yaml:"size,omitempty" validate:"gte=0"`
	Min  int `yaml:"min,omitempty" validate:"gte=0"`
	Max  int `yaml:"max,omitempty" validate:"gte=0"`
}

// SampleSize returns the exposure sample size for one period. An empty range
// (Max <= Min) yields Min.
func (e ExposureSpec) SampleSize(rng *rand.Rand) int {
	if e.Size > 0 {
		return e.Size
	}
	if e.Max <= e.Min {
		return e.Min
	}
	return e.Min + rng.IntN(e.Max-e.Min)
}

// ExperimentSpec is the top-level experiment configuration.
// Loaded from YAML via LoadExperimentSpec(path).
type ExperimentSpec struct {
	Version           string       `yaml:"version"`
	Seed              int64        `yaml:"seed"`
	Clients           int          `yaml:"clients" validate:"gt=0"`
	Arms              []ArmSpec    `yaml:"arms" validate:"required,min=1,dive"`
	Periods           int          `yaml:"periods" validate:"gt=0"`
	StartDate         string       `yaml:"start_date" validate:"required,datetime=2006-01-02"`
	Exposure          ExposureSpec `yaml:"exposure"`
	Policy            string       `yaml:"policy,omitempty" validate:"omitempty,oneof=random thompson"`
	ColdStart         string       `yaml:"cold_start,omitempty" validate:"omitempty,oneof=zero uniform"`
	HistoryWindowDays int          `yaml:"history_window_days,omitempty" validate:"gte=0"` // 0 = full history
}

// defaultClickProbabilities are ten near-identical variants, the hardest case for
// telling arms apart.
var defaultClickProbabilities = []float64{
	0.7112, 0.7113, 0.7113, 0.7115, 0.7116,
	0.7117, 0.7117, 0.7118, 0.7119, 0.7151,
}

// DefaultExperimentSpec returns the reference backtest: ten arms, 100k clients and
// one period exposing between 10k and 20k clients.
func DefaultExperimentSpec() *ExperimentSpec {
	arms := make([]ArmSpec, len(defaultClickProbabilities))
	for i, p := range defaultClickProbabilities {
		arms[i] = ArmSpec{ID: i, ClickProbability: p}
	}
	return &ExperimentSpec{
		Version:   "1",
		Seed:      42,
		Clients:   100_000,
		Arms:      arms,
		Periods:   1,
		StartDate: "2023-03-02",
		Exposure:  ExposureSpec{Min: 10_000, Max: 20_000},
		Policy:    PolicyThompson,
		ColdStart: string(ColdStartZero),
	}
}

// LoadExperimentSpec reads and parses a YAML experiment file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadExperimentSpec(path string) (*ExperimentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment spec: %w", err)
	}
	var spec ExperimentSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing experiment spec: %w", err)
	}
	if spec.Version == "" {
		logrus.Warnf("experiment spec %s has no version; assuming \"1\"", path)
		spec.Version = "1"
	}
	return &spec, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (s *ExperimentSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("experiment spec: %v: %w", err, ErrInvalidInput)
	}
	seen := make(map[int]bool, len(s.Arms))
	for i, a := range s.Arms {
		if math.IsNaN(a.ClickProbability) {
			return fmt.Errorf("arms[%d]: click_probability must be a number: %w", i, ErrInvalidInput)
		}
		if seen[a.ID] {
			return fmt.Errorf("arms[%d]: duplicate arm id %d: %w", i, a.ID, ErrInvalidInput)
		}
		seen[a.ID] = true
	}
	e := s.Exposure
	switch {
	case e.Size > 0:
		if e.Size > s.Clients {
			return fmt.Errorf("exposure.size %d exceeds clients %d: %w", e.Size, s.Clients, ErrInvalidInput)
		}
	case e.Min > 0 || e.Max > 0:
		if e.Min < 1 {
			return fmt.Errorf("exposure.min must be at least 1, got %d: %w", e.Min, ErrInvalidInput)
		}
		if e.Min >= e.Max {
			return fmt.Errorf("exposure.min %d must be below exposure.max %d: %w", e.Min, e.Max, ErrInvalidInput)
		}
		if e.Max-1 > s.Clients {
			return fmt.Errorf("exposure.max %d exceeds clients %d: %w", e.Max, s.Clients, ErrInvalidInput)
		}
	default:
		return fmt.Errorf("exposure: set size or a min/max range: %w", ErrInvalidInput)
	}
	return nil
}

// Start returns the parsed start date.
func (s *ExperimentSpec) Start() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date: %v: %w", err, ErrInvalidInput)
	}
	return Day(t), nil
}

// ArmIDs returns the arm identifiers in declaration order.
func (s *ExperimentSpec) ArmIDs() []ArmID {
	ids := make([]ArmID, len(s.Arms))
	for i, a := range s.Arms {
		ids[i] = ArmID(a.ID)
	}
	return ids
}

// ClickProbabilities returns the oracle probabilities keyed by arm.
func (s *ExperimentSpec) ClickProbabilities() map[ArmID]float64 {
	probs := make(map[ArmID]float64, len(s.Arms))
	for _, a := range s.Arms {
		probs[ArmID(a.ID)] = a.ClickProbability
	}
	return probs
}

// ClientIDs returns the client population 0..Clients-1.
func (s *ExperimentSpec) ClientIDs() []ClientID {
	ids := make([]ClientID, s.Clients)
	for i := range ids {
		ids[i] = ClientID(i)
	}
	return ids
}
