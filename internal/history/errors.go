package history

import (
	"errors"
	"fmt"
)

// Common errors for history operations.
var (
	// ErrBusy is returned in strict mode when another execute, undo or redo
	// is in flight. Clear returns it in either mode.
	ErrBusy = errors.New("history operation in progress")

	// ErrNothingToUndo is returned in strict mode when the cursor is at the start.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned in strict mode when the cursor is at the end.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrNilAction is returned when Execute is called with a nil action.
	ErrNilAction = errors.New("nil action")

	// ErrInvalidAction is returned when an action fails its own validation.
	ErrInvalidAction = errors.New("invalid action")

	// ErrActionPanicked wraps a panic recovered from an action closure.
	ErrActionPanicked = errors.New("action panicked")
)

// Operation names used in ActionError and log output.
const (
	OpExecute = "execute"
	OpUndo    = "undo"
	OpRedo    = "redo"
)

// ActionError reports a failure of an action's execute or undo closure.
type ActionError struct {
	Op          string // OpExecute, OpUndo or OpRedo
	ActionID    string
	Description string
	Err         error
}

func newActionError(op string, action Action, err error) *ActionError {
	return &ActionError{
		Op:          op,
		ActionID:    action.ID(),
		Description: action.Description(),
		Err:         err,
	}
}

func (e *ActionError) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Op
	if e.Description != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Description)
	}
	if e.ActionID != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.ActionID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ActionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
