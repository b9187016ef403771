package sim

import "time"

// ClientID identifies a client within a run. It carries no state.
type ClientID int64

// ArmID identifies an ad variant from the fixed arm set.
type ArmID int

// Marking is the arm assignment decision for a client on a date.
type Marking struct {
	ClientID ClientID
	ArmID    ArmID
	Date     time.Time // zero when the ledger is undated
}

// Exposure is a marking for a client who was actually shown the ad.
type Exposure struct {
	ClientID ClientID
	ArmID    ArmID
	Date     time.Time
}

// Outcome is an exposure with its simulated binary reward.
type Outcome struct {
	ClientID ClientID
	ArmID    ArmID
	Date     time.Time
	Clicked  int // 0 or 1
}

// Day truncates t to a civil date at UTC midnight.
// All dates flowing through the simulation are normalised with Day so that
// joins on date compare equal regardless of the caller's time zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
