package scn

import "github.com/pkg/errors"

// Error kinds for container decoding. Heuristic misses are not represented
// here: scanners and recovery routines report them by returning empty
// results, and the caller falls back or skips the record.
var (
	// ErrMalformed covers magic mismatch, out-of-range reads and structurally
	// required fields outside their valid range during the deterministic
	// section walk. Fatal for the current file only.
	ErrMalformed = errors.New("malformed container")

	ErrOutOfRange    = errors.New("read out of range")
	ErrInvalidOffset = errors.New("invalid offset")
)
