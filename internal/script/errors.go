package script

import (
	"errors"
	"fmt"
)

// Errors for Lua runtime operations.
var (
	// ErrRuntimeClosed is returned when operating on a closed runtime.
	ErrRuntimeClosed = errors.New("lua runtime is closed")

	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("lua executor is closed")

	// ErrUnknownAction is returned when no action with the given name is defined.
	ErrUnknownAction = errors.New("unknown script action")

	// ErrInvalidDefinition is returned when actions.define receives bad arguments.
	ErrInvalidDefinition = errors.New("invalid action definition")
)

// CallError reports a failure inside a Lua action function.
type CallError struct {
	Action string // action name
	Phase  string // "execute" or "undo"
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("lua %s %q: %v", e.Phase, e.Action, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
