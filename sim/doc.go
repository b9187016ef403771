// Package sim provides the core Thompson Sampling bandit simulation for ad allocation.
//
// # Reading Guide
//
// Start with these files to understand one simulated period:
//   - assignment.go: random arm assignment (the baseline policy)
//   - ledger.go: the marking ledger recording which arm each client was given
//   - exposure.go: partial-reach exposure sampling joined against the ledger
//   - reward.go: per-arm Bernoulli click oracle
//   - posterior.go: Beta-Bernoulli posterior sampling and argmax recommendation
//
// simulator.go wires these into a multi-period loop, feeding each period's outcomes
// into a caller-owned History that the next period's recommender reads.
//
// # Architecture
//
// The sim package holds the pure decision and simulation logic. Supporting code
// lives in sub-packages:
//   - sim/store/: parquet partition persistence and directory cleanup
//   - sim/trace/: per-period decision records and run summaries
//
// All randomness flows through PartitionedRNG so a single seed reproduces a run
// bit-for-bit.
package sim
