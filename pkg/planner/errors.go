package planner

import (
	"errors"
	"fmt"

	"github.com/openplan/openplan/pkg/bitstate"
)

// ErrorKind classifies a planner error for programmatic handling.
type ErrorKind string

const (
	// ErrorKindConstraints indicates that constraint propagation drove a
	// state into contradiction while compiling a domain.
	ErrorKindConstraints ErrorKind = "incompatible_constraints"

	// ErrorKindAssembly indicates a generic construction fault: conflicting
	// union members, a state assigned twice in a start/goal description, or
	// an incomplete start state.
	ErrorKindAssembly ErrorKind = "assembly"

	// ErrorKindUnknownAction indicates an action lookup by name failed.
	ErrorKindUnknownAction ErrorKind = "unknown_action"

	// ErrorKindUnknownState indicates a state lookup by name failed.
	ErrorKindUnknownState ErrorKind = "unknown_state"
)

// DomainError is a classified planner error with compilation context.
// All fields are populated at construction; errors are never mutated after
// being raised.
type DomainError struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Message is the human-readable error message.
	Message string

	// Name is the action or state name involved, for lookup failures.
	Name string

	// Constraint is the constraint whose implication produced a conflict,
	// for ErrorKindConstraints.
	Constraint *Constraint

	// State is the ternary state at the point of conflict.
	State bitstate.BitState

	// ImpliedState is the name of the state the constraint tried to imply.
	ImpliedState string

	// Action is the action being compiled when the conflict arose, if any.
	Action *Action

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Constraint != nil {
		s += fmt.Sprintf("; constraint=%s, state=%s, implied=%s",
			e.Constraint, e.State.MaskString(), e.ImpliedState)
	}
	if e.Action != nil {
		s += fmt.Sprintf(" while constraining action %s/must=%s/then=%s",
			e.Action.Name, e.Action.Must.MaskString(), e.Action.Then.MaskString())
	}
	if e.Name != "" {
		s += fmt.Sprintf(" (name=%s)", e.Name)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error for error chain inspection.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// newConstraintsError builds an ErrorKindConstraints error. The action may
// be nil when the conflict arises outside action compilation; it is
// supplied at the raise site, never attached after the fact.
func newConstraintsError(c *Constraint, state bitstate.BitState, implied string, action *Action, err error) *DomainError {
	return &DomainError{
		Kind:         ErrorKindConstraints,
		Message:      "constraint puts state into conflict",
		Constraint:   c,
		State:        state,
		ImpliedState: implied,
		Action:       action,
		Err:          err,
	}
}

// newAssemblyError builds an ErrorKindAssembly error.
func newAssemblyError(message string, err error) *DomainError {
	return &DomainError{Kind: ErrorKindAssembly, Message: message, Err: err}
}

// newUnknownActionError builds an ErrorKindUnknownAction error.
func newUnknownActionError(name string) *DomainError {
	return &DomainError{
		Kind:    ErrorKindUnknownAction,
		Message: "no action with that name",
		Name:    name,
	}
}

// newUnknownStateError builds an ErrorKindUnknownState error.
func newUnknownStateError(name string) *DomainError {
	return &DomainError{
		Kind:    ErrorKindUnknownState,
		Message: "no state with that name",
		Name:    name,
	}
}

// IsIncompatibleConstraints reports whether err is a constraint propagation
// conflict.
func IsIncompatibleConstraints(err error) bool {
	var e *DomainError
	return errors.As(err, &e) && e.Kind == ErrorKindConstraints
}

// IsAssembly reports whether err is a generic domain construction fault.
func IsAssembly(err error) bool {
	var e *DomainError
	return errors.As(err, &e) && e.Kind == ErrorKindAssembly
}

// IsUnknownAction reports whether err is a failed action lookup.
func IsUnknownAction(err error) bool {
	var e *DomainError
	return errors.As(err, &e) && e.Kind == ErrorKindUnknownAction
}

// IsUnknownState reports whether err is a failed state lookup.
func IsUnknownState(err error) bool {
	var e *DomainError
	return errors.As(err, &e) && e.Kind == ErrorKindUnknownState
}
