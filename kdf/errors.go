package kdf

import (
	"encoding/hex"
	"errors"
	"fmt"

	"azoo.dev/utils/xtee/tee"
)

// Step names one boundary call of the derivation protocol.
type Step string

const (
	StepAllocOperation Step = "alloc-operation"
	StepAllocKey       Step = "alloc-key"
	StepPopulate       Step = "populate"
	StepBind           Step = "bind"
	StepFreeKey        Step = "free-key"
	StepAllocOutput    Step = "alloc-output"
	StepDerive         Step = "derive"
	StepRead           Step = "read"
	StepFreeOperation  Step = "free-operation"
	StepFreeOutput     Step = "free-output"
)

// ErrUnsupportedAlgorithm is matched by errors.Is when the environment
// refused to allocate an operation for the algorithm of a vector.
var ErrUnsupportedAlgorithm = errors.New("kdf: algorithm not supported by the environment")

// StepError reports a boundary call that did not succeed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("kdf: %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is reports ErrUnsupportedAlgorithm for a NotSupported status at operation
// allocation.
func (e *StepError) Is(target error) bool {
	return target == ErrUnsupportedAlgorithm &&
		e.Step == StepAllocOperation &&
		errors.Is(e.Err, tee.StatusNotSupported)
}

// MismatchError reports a derivation that completed but produced other bytes
// than the vector expects.
type MismatchError struct {
	Expected []byte
	Got      []byte
}

func (e *MismatchError) Error() string {
	if len(e.Expected) != len(e.Got) {
		return fmt.Sprintf("kdf: derived %d bytes, expected %d", len(e.Got), len(e.Expected))
	}
	return fmt.Sprintf("kdf: derived key mismatch: got %s, expected %s",
		hex.EncodeToString(e.Got), hex.EncodeToString(e.Expected))
}
