package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mab-sim/mab-sim/sim/internal/testutil"
)

// outcomes builds s successes and f failures for arm.
func outcomes(arm ArmID, s, f int) []Outcome {
	out := make([]Outcome, 0, s+f)
	for i := 0; i < s; i++ {
		out = append(out, Outcome{ClientID: ClientID(i), ArmID: arm, Date: testDate, Clicked: 1})
	}
	for i := 0; i < f; i++ {
		out = append(out, Outcome{ClientID: ClientID(s + i), ArmID: arm, Date: testDate, Clicked: 0})
	}
	return out
}

func TestTally_CountsPerArm(t *testing.T) {
	history := append(outcomes(0, 3, 2), outcomes(1, 0, 4)...)
	history = append(history, Outcome{ArmID: 2, Clicked: 7}) // neither success nor failure

	got := Tally(history)

	assert.Equal(t, ArmTally{Successes: 3, Failures: 2}, got[0])
	assert.Equal(t, ArmTally{Successes: 0, Failures: 4}, got[1])
	assert.Equal(t, ArmTally{}, got[2])
}

func TestArmTally_Posterior_LaplaceSmoothing(t *testing.T) {
	beta := ArmTally{Successes: 4, Failures: 1}.Posterior(nil)
	assert.Equal(t, 5.0, beta.Alpha)
	assert.Equal(t, 2.0, beta.Beta)

	prior := ArmTally{}.Posterior(nil)
	assert.Equal(t, 1.0, prior.Alpha)
	assert.Equal(t, 1.0, prior.Beta)
}

func TestSamplePosteriors_MatrixShapeAndZeroColumn(t *testing.T) {
	// GIVEN arm 0 with no successes and arm 1 with some
	tallies := map[ArmID]ArmTally{0: {Successes: 0, Failures: 5}, 1: {Successes: 2, Failures: 3}}

	// WHEN sampling for 20 clients
	samples, order, err := SamplePosteriors(tallies, []ArmID{1, 0}, 20, testRNG(1), ColdStartZero)
	require.NoError(t, err)

	// THEN columns follow ascending arm order and the zero-success column is all zero
	r, c := samples.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []ArmID{0, 1}, order)
	for i := 0; i < r; i++ {
		assert.Zero(t, samples.At(i, 0))
		v := samples.At(i, 1)
		assert.True(t, v > 0 && v < 1, "Beta draw %v outside (0,1)", v)
	}
}

func TestRecommendArms_ZeroSuccessArmNeverWins(t *testing.T) {
	// GIVEN arm A never succeeded and arm B succeeded at least once
	history := append(outcomes(0, 0, 50), outcomes(1, 1, 500)...)

	// WHEN recommending for many clients, even though B's posterior mean is tiny
	got, err := RecommendArms(history, []ArmID{0, 1}, 2000, testRNG(2), ColdStartZero)
	require.NoError(t, err)

	// THEN A is never recommended
	for i, a := range got {
		require.Equalf(t, ArmID(1), a, "client %d recommended zero-success arm", i)
	}
}

func TestRecommendArms_UniformColdStart_ExploresUnseenArm(t *testing.T) {
	// GIVEN the same histories but the standard Beta(1,1) cold start
	history := append(outcomes(0, 0, 0), outcomes(1, 1, 50)...)

	got, err := RecommendArms(history, []ArmID{0, 1}, 1000, testRNG(3), ColdStartUniform)
	require.NoError(t, err)

	// THEN the unseen arm wins a good share of clients (diverges from the zero policy)
	wins := 0
	for _, a := range got {
		if a == 0 {
			wins++
		}
	}
	assert.Greater(t, wins, 500)
}

func TestRecommendArms_ExploitsStrongEvidence(t *testing.T) {
	history := append(outcomes(0, 100, 900), outcomes(1, 900, 100)...)
	got, err := RecommendArms(history, []ArmID{0, 1}, 1000, testRNG(4), ColdStartZero)
	require.NoError(t, err)
	assert.Equal(t, testutil.Repeat(1000, ArmID(1)), got)
}

func TestRecommendArms_AllZero_TieGoesToLowestArm(t *testing.T) {
	// GIVEN no arm has ever succeeded, arms passed out of order
	history := outcomes(9, 0, 10)

	got, err := RecommendArms(history, []ArmID{5, 2, 9}, 10, testRNG(5), ColdStartZero)
	require.NoError(t, err)

	// THEN every row is an all-zero tie resolved to the lowest arm id
	assert.Equal(t, testutil.Repeat(10, ArmID(2)), got)
}

func TestRecommendArms_ReturnsArmIDsNotColumns(t *testing.T) {
	history := outcomes(40, 10, 0)
	got, err := RecommendArms(history, []ArmID{10, 40}, 5, testRNG(6), ColdStartZero)
	require.NoError(t, err)
	assert.Equal(t, testutil.Repeat(5, ArmID(40)), got)
}

func TestRecommendArms_SameSeed_Identical(t *testing.T) {
	history := append(outcomes(0, 30, 70), outcomes(1, 32, 68)...)
	a, err := RecommendArms(history, []ArmID{0, 1}, 500, testRNG(7), ColdStartZero)
	require.NoError(t, err)
	b, err := RecommendArms(history, []ArmID{0, 1}, 500, testRNG(7), ColdStartZero)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRecommendArms_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		arms      []ArmID
		n         int
		coldStart ColdStart
	}{
		{"empty arms", nil, 10, ColdStartZero},
		{"zero clients", []ArmID{0}, 0, ColdStartZero},
		{"negative clients", []ArmID{0}, -3, ColdStartZero},
		{"repeated arm", []ArmID{0, 0}, 10, ColdStartZero},
		{"unknown cold start", []ArmID{0}, 10, ColdStart("optimistic")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecommendArms(nil, tt.arms, tt.n, testRNG(1), tt.coldStart)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestIsValidColdStart(t *testing.T) {
	assert.True(t, IsValidColdStart("zero"))
	assert.True(t, IsValidColdStart("uniform"))
	assert.True(t, IsValidColdStart(""))
	assert.False(t, IsValidColdStart("optimistic"))
}
