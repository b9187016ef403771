package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the core. Callers match them with errors.Is.
var (
	// ErrInvalidInput reports empty arm sets, non-positive sizes or out-of-range probabilities.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLengthMismatch reports misaligned parallel sequences.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrJoinMismatch reports an exposure request that cannot be joined against the
	// marking ledger. It wraps ErrInvalidInput.
	ErrJoinMismatch = fmt.Errorf("%w: join mismatch", ErrInvalidInput)
)
