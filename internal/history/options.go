package history

import (
	"log/slog"
	"time"
)

// DefaultMaxHistorySize is the bound used when none (or a non-positive one)
// is configured.
const DefaultMaxHistorySize = 50

// Observer is called after a transition commits.
type Observer func(entry Entry)

// Option configures a Manager.
type Option func(*Manager)

// WithMaxHistorySize bounds the number of stored actions.
func WithMaxHistorySize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithOnExecute registers an observer for successful executes.
func WithOnExecute(fn Observer) Option {
	return func(m *Manager) {
		m.onExecute = fn
	}
}

// WithOnUndo registers an observer for successful undos.
func WithOnUndo(fn Observer) Option {
	return func(m *Manager) {
		m.onUndo = fn
	}
}

// WithOnRedo registers an observer for successful redos.
func WithOnRedo(fn Observer) Option {
	return func(m *Manager) {
		m.onRedo = fn
	}
}

// WithOnClear registers a callback for successful clears.
func WithOnClear(fn func()) Option {
	return func(m *Manager) {
		m.onClear = fn
	}
}

// ErrorObserver is called when an action's closure fails. op is OpExecute,
// OpUndo or OpRedo.
type ErrorObserver func(op string, action Action, err error)

// WithOnError registers an observer for closure failures. It runs before the
// error is returned to the caller, with history unchanged.
func WithOnError(fn ErrorObserver) Option {
	return func(m *Manager) {
		m.onError = fn
	}
}

// WithStrict makes skipped calls report why they were skipped: ErrBusy while
// another operation is in flight, ErrNothingToUndo and ErrNothingToRedo at
// the boundaries. By default those calls return nil.
func WithStrict(strict bool) Option {
	return func(m *Manager) {
		m.strict = strict
	}
}

// WithLogger sets the logger for transition and failure messages.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
