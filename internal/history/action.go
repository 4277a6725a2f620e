package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is a reversible unit of work.
//
// Execute performs the forward effect and Undo reverses it. Both may block;
// the manager passes its caller's context through unchanged. A Redo runs
// Execute again, so implementations must tolerate being re-executed after an
// Undo.
type Action interface {
	// ID returns a unique identifier for the action.
	ID() string

	// Description returns a human-readable label.
	Description() string

	// Execute performs the action.
	Execute(ctx context.Context) error

	// Undo reverses a previous Execute.
	Undo(ctx context.Context) error
}

// Validator is implemented by actions that can check their own
// preconditions. The manager calls Validate before acquiring the guard.
type Validator interface {
	Validate() error
}

// Payload is implemented by actions that carry caller-defined data.
// The manager never inspects it.
type Payload interface {
	Data() any
}

// ActionFunc is the signature of an execute or undo closure.
type ActionFunc func(ctx context.Context) error

// FuncAction adapts a pair of closures to the Action interface.
type FuncAction struct {
	ActionID  string
	Desc      string
	ExecuteFn ActionFunc
	UndoFn    ActionFunc
	Value     any
}

// ActionOption configures a FuncAction.
type ActionOption func(*FuncAction)

// WithID overrides the generated identifier.
func WithID(id string) ActionOption {
	return func(a *FuncAction) {
		a.ActionID = id
	}
}

// WithData attaches an opaque payload.
func WithData(data any) ActionOption {
	return func(a *FuncAction) {
		a.Value = data
	}
}

// NewAction creates a closure-backed action with a random UUID identifier.
func NewAction(description string, execute, undo ActionFunc, opts ...ActionOption) *FuncAction {
	a := &FuncAction{
		ActionID:  uuid.NewString(),
		Desc:      description,
		ExecuteFn: execute,
		UndoFn:    undo,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the action identifier.
func (a *FuncAction) ID() string { return a.ActionID }

// Description returns the action label.
func (a *FuncAction) Description() string { return a.Desc }

// Data returns the attached payload, if any.
func (a *FuncAction) Data() any { return a.Value }

// Execute runs the forward closure.
func (a *FuncAction) Execute(ctx context.Context) error {
	if a.ExecuteFn == nil {
		return fmt.Errorf("%w: no execute function", ErrInvalidAction)
	}
	return a.ExecuteFn(ctx)
}

// Undo runs the inverse closure.
func (a *FuncAction) Undo(ctx context.Context) error {
	if a.UndoFn == nil {
		return fmt.Errorf("%w: no undo function", ErrInvalidAction)
	}
	return a.UndoFn(ctx)
}

// Validate requires both closures to be present.
func (a *FuncAction) Validate() error {
	switch {
	case a.ExecuteFn == nil:
		return fmt.Errorf("%w: %q has no execute function", ErrInvalidAction, a.Desc)
	case a.UndoFn == nil:
		return fmt.Errorf("%w: %q has no undo function", ErrInvalidAction, a.Desc)
	}
	return nil
}

// Entry is an action recorded in the history together with the time its
// Execute succeeded.
type Entry struct {
	Action    Action
	Timestamp time.Time
}

// ID returns the recorded action's identifier.
func (e Entry) ID() string {
	if e.Action == nil {
		return ""
	}
	return e.Action.ID()
}

// Description returns the recorded action's label.
func (e Entry) Description() string {
	if e.Action == nil {
		return ""
	}
	return e.Action.Description()
}

// Data returns the recorded action's payload, or nil if it carries none.
func (e Entry) Data() any {
	if p, ok := e.Action.(Payload); ok {
		return p.Data()
	}
	return nil
}
