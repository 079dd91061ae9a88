package bitstate

import "fmt"

// IncompatibleAddError is returned by Add when a position is already known
// and the added value disagrees with it.
type IncompatibleAddError struct {
	// State is the BitState the add was attempted on.
	State BitState

	// Pos is the single-bit position being added.
	Pos uint64

	// Value is the value the add tried to assign.
	Value bool
}

// Error implements the error interface.
func (e *IncompatibleAddError) Error() string {
	return fmt.Sprintf("bitstate: add of %v at %#x does not match known value in %s",
		e.Value, e.Pos, e.State.MaskString())
}

// ConflictError is returned when two BitStates disagree on a position known
// in both, during a union or an unchecked unset.
type ConflictError struct {
	// A and B are the two conflicting BitStates.
	A, B BitState

	// Op names the operation that detected the conflict.
	Op string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("bitstate: %s conflict: %s with %s", e.Op, e.A.MaskString(), e.B.MaskString())
}

// WidthMismatchError is returned when an operation combines BitStates of
// different widths.
type WidthMismatchError struct {
	A, B BitState
}

// Error implements the error interface.
func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("bitstate: width mismatch: %d with %d", e.A.Width(), e.B.Width())
}
