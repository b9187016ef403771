package sim

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mab-sim/mab-sim/sim/internal/testutil"
)

func TestAssignArmsRandomly_SizeAndMembership(t *testing.T) {
	for _, k := range []int{1, 2, 10} {
		// GIVEN n clients and K arms
		clients := testutil.Seq[ClientID](500)
		arms := testutil.Seq[ArmID](k)

		// WHEN arms are assigned
		got, err := AssignArmsRandomly(clients, arms, testRNG(1))

		// THEN there is exactly one arm per client and each is in the arm set
		require.NoError(t, err)
		require.Len(t, got, len(clients))
		for i, a := range got {
			assert.Truef(t, slices.Contains(arms, a), "client %d got arm %d outside the arm set", i, a)
		}
	}
}

func TestAssignArmsRandomly_CoversAllArms(t *testing.T) {
	// GIVEN many clients and few arms
	arms := []ArmID{3, 7, 11}

	// WHEN assigned uniformly
	got, err := AssignArmsRandomly(testutil.Seq[ClientID](3000), arms, testRNG(2))
	require.NoError(t, err)

	// THEN every arm receives a roughly equal share
	counts := make(map[ArmID]int)
	for _, a := range got {
		counts[a]++
	}
	for _, a := range arms {
		assert.InDelta(t, 1000, counts[a], 150, "arm %d", a)
	}
}

func TestAssignArmsRandomly_EmptyArms_InvalidInput(t *testing.T) {
	_, err := AssignArmsRandomly(testutil.Seq[ClientID](3), nil, testRNG(1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAssignArmsRandomly_NoClients_EmptyResult(t *testing.T) {
	got, err := AssignArmsRandomly(nil, []ArmID{0}, testRNG(1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssignArmsRandomly_SameSeed_Identical(t *testing.T) {
	clients := testutil.Seq[ClientID](100)
	arms := testutil.Seq[ArmID](5)
	a, err := AssignArmsRandomly(clients, arms, testRNG(9))
	require.NoError(t, err)
	b, err := AssignArmsRandomly(clients, arms, testRNG(9))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
