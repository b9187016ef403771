package sim

import (
	"fmt"
	"time"
)

// MarkingLedger records which arm each client was assigned for a single date.
// A ledger built without a date has no date column; it cannot be joined against
// exposures but is still useful to callers that only care about assignments.
// Ledgers are immutable once built.
type MarkingLedger struct {
	rows  []Marking
	date  time.Time
	dated bool
	index map[ClientID]int // client → row position (first occurrence)
}

// NewMarkingLedger builds a ledger from parallel client and arm sequences.
// date may be nil, in which case the ledger is undated.
// Returns ErrLengthMismatch if the sequences differ in length and ErrInvalidInput
// if a dated ledger would hold two markings for the same client.
func NewMarkingLedger(clients []ClientID, arms []ArmID, date *time.Time) (*MarkingLedger, error) {
	if len(clients) != len(arms) {
		return nil, fmt.Errorf("building marking ledger: %d clients vs %d arms: %w",
			len(clients), len(arms), ErrLengthMismatch)
	}
	l := &MarkingLedger{
		rows:  make([]Marking, len(clients)),
		index: make(map[ClientID]int, len(clients)),
	}
	if date != nil {
		l.date = Day(*date)
		l.dated = true
	}
	for i, c := range clients {
		if _, dup := l.index[c]; dup {
			if l.dated {
				return nil, fmt.Errorf("building marking ledger: client %d marked twice on %s: %w",
					c, l.date.Format(time.DateOnly), ErrInvalidInput)
			}
		} else {
			l.index[c] = i
		}
		l.rows[i] = Marking{ClientID: c, ArmID: arms[i], Date: l.date}
	}
	return l, nil
}

// HasDate reports whether the ledger carries a date column.
func (l *MarkingLedger) HasDate() bool { return l.dated }

// Date returns the ledger's date and whether it has one.
func (l *MarkingLedger) Date() (time.Time, bool) { return l.date, l.dated }

// Len returns the number of markings.
func (l *MarkingLedger) Len() int { return len(l.rows) }

// Rows returns a copy of the ledger's markings in construction order.
func (l *MarkingLedger) Rows() []Marking {
	out := make([]Marking, len(l.rows))
	copy(out, l.rows)
	return out
}

// Lookup returns the marking for client on date, if one exists.
// An undated ledger never matches.
func (l *MarkingLedger) Lookup(client ClientID, date time.Time) (Marking, bool) {
	if !l.dated || !l.date.Equal(Day(date)) {
		return Marking{}, false
	}
	i, ok := l.index[client]
	if !ok {
		return Marking{}, false
	}
	return l.rows[i], true
}
