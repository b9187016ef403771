package sim

import (
	"math/rand/v2"
	"time"
)

// testRNG returns an isolated, seeded stream for a single test.
func testRNG(seed int64) *rand.Rand {
	return NewPartitionedRNG(NewSimulationKey(seed)).ForSubsystem("test")
}

var testDate = time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC)
