package sim

import "time"

// History is the caller-owned, append-only table of outcomes accumulated across
// simulated periods. The recommender reads it explicitly; the core never keeps
// outcomes between calls.
type History struct {
	rows []Outcome
}

// NewHistory creates a History seeded with rows (e.g. outcomes loaded from a store).
func NewHistory(rows ...Outcome) *History {
	h := &History{}
	h.Append(rows...)
	return h
}

// Append adds outcomes to the end of the history.
func (h *History) Append(rows ...Outcome) {
	h.rows = append(h.rows, rows...)
}

// Len returns the number of outcomes recorded.
func (h *History) Len() int { return len(h.rows) }

// Rows returns the full history. Callers must not modify the returned slice.
func (h *History) Rows() []Outcome { return h.rows }

// Window returns the outcomes whose date falls in [from, to], both inclusive,
// compared as civil dates.
func (h *History) Window(from, to time.Time) []Outcome {
	from, to = Day(from), Day(to)
	out := make([]Outcome, 0)
	for _, r := range h.rows {
		d := Day(r.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Tally returns per-arm success/failure counts over the full history.
func (h *History) Tally() map[ArmID]ArmTally {
	return Tally(h.rows)
}
