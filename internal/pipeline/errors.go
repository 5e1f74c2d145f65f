package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies where in the per-address pipeline an address was when it
// aborted.
type Stage int

// Pipeline stages in execution order
const (
	StageValidating Stage = iota // private-range classification
	StageProbing                 // latency + hop probes
	StageLookingUp               // info + weather lookups
	StageAssembling              // report construction
	StageDone                    // report appended to the batch
)

func (s Stage) String() string {
	switch s {
	case StageValidating:
		return "validating"
	case StageProbing:
		return "probing"
	case StageLookingUp:
		return "looking-up"
	case StageAssembling:
		return "assembling"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Sentinel errors for the per-address failure taxonomy. All are fatal to the
// address and non-fatal to the batch. Latency probe degradation is not here:
// it is recorded as a sentinel value in the report, not an error.
var (
	// ErrNotRoutable marks an address in a private or reserved range
	ErrNotRoutable = errors.New("address not routable")

	// ErrTraceFailed marks a hop trace that could not complete
	ErrTraceFailed = errors.New("trace failed")

	// ErrLookupFailed marks an info or weather lookup failure, including
	// success-status responses the decoder could not parse
	ErrLookupFailed = errors.New("lookup failed")
)

// AddressError is a per-address failure carrying the offending address and
// the stage that aborted it.
type AddressError struct {
	Address string
	Stage   Stage
	Err     error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Address, e.Stage, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}
