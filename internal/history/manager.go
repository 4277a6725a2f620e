package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Stats counts manager activity since creation.
type Stats struct {
	Executed    uint64
	Undone      uint64
	Redone      uint64
	Failed      uint64
	SkippedBusy uint64
	Evicted     uint64
}

// State is a consistent snapshot of a manager.
type State struct {
	Entries []Entry
	// Position is the index of the next undo target, -1 when there is none.
	Position int
	MaxSize  int
	Busy     bool
}

// CanUndo reports whether the snapshot has an undoable entry.
func (s State) CanUndo() bool { return s.Position >= 0 }

// CanRedo reports whether the snapshot has a redoable entry.
func (s State) CanRedo() bool { return s.Position < len(s.Entries)-1 }

// Manager maintains the undo/redo history.
//
// The mutex protects the entries and cursor and is never held while an
// action runs. The busy flag is the execution guard shared by Execute, Undo
// and Redo.
type Manager struct {
	mu sync.Mutex

	entries  []Entry
	position int
	busy     bool

	maxSize int
	strict  bool

	onExecute Observer
	onUndo    Observer
	onRedo    Observer
	onError   ErrorObserver
	onClear   func()

	logger *slog.Logger
	now    func() time.Time

	stats Stats
}

// New creates a manager with an empty history.
func New(opts ...Option) *Manager {
	m := &Manager{
		position: -1,
		maxSize:  DefaultMaxHistorySize,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs action and, if it succeeds, records it as the newest entry.
//
// Any redoable entries are discarded and the oldest entries are evicted once
// the history exceeds its bound. A failing action leaves the history
// untouched and its error is returned as an *ActionError.
func (m *Manager) Execute(ctx context.Context, action Action) error {
	if action == nil {
		return ErrNilAction
	}
	if v, ok := action.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.busy {
		return m.skipBusyLocked(OpExecute)
	}
	m.busy = true
	m.mu.Unlock()
	defer m.release()

	if err := m.invoke(ctx, OpExecute, action, action.Execute); err != nil {
		return err
	}

	m.mu.Lock()
	entry := Entry{Action: action, Timestamp: m.now()}
	// Fork: drop everything past the cursor.
	clear(m.entries[m.position+1:])
	m.entries = append(m.entries[:m.position+1], entry)
	m.position = len(m.entries) - 1
	m.evictLocked()
	m.stats.Executed++
	m.logger.Debug("action executed",
		"id", entry.ID(), "description", entry.Description(),
		"size", len(m.entries), "position", m.position+1)
	m.mu.Unlock()

	m.notify(m.onExecute, entry)
	return nil
}

// Undo reverses the action at the cursor and moves the cursor back one.
// On failure the cursor stays put so a retry targets the same action.
func (m *Manager) Undo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.busy {
		return m.skipBusyLocked(OpUndo)
	}
	if m.position < 0 {
		return m.boundaryLocked(ErrNothingToUndo)
	}
	entry := m.entries[m.position]
	m.busy = true
	m.mu.Unlock()
	defer m.release()

	if err := m.invoke(ctx, OpUndo, entry.Action, entry.Action.Undo); err != nil {
		return err
	}

	m.mu.Lock()
	m.position--
	m.stats.Undone++
	m.logger.Debug("action undone",
		"id", entry.ID(), "description", entry.Description(), "position", m.position+1)
	m.mu.Unlock()

	m.notify(m.onUndo, entry)
	return nil
}

// Redo re-executes the action just past the cursor and moves the cursor
// forward one. On failure the cursor stays put.
func (m *Manager) Redo(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.busy {
		return m.skipBusyLocked(OpRedo)
	}
	if m.position >= len(m.entries)-1 {
		return m.boundaryLocked(ErrNothingToRedo)
	}
	entry := m.entries[m.position+1]
	m.busy = true
	m.mu.Unlock()
	defer m.release()

	if err := m.invoke(ctx, OpRedo, entry.Action, entry.Action.Execute); err != nil {
		return err
	}

	m.mu.Lock()
	m.position++
	m.stats.Redone++
	m.logger.Debug("action redone",
		"id", entry.ID(), "description", entry.Description(), "position", m.position+1)
	m.mu.Unlock()

	m.notify(m.onRedo, entry)
	return nil
}

// Clear removes all history. It returns ErrBusy, and changes nothing, while
// an execute, undo or redo is in flight.
func (m *Manager) Clear() error {
	m.mu.Lock()
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	clear(m.entries)
	m.entries = nil
	m.position = -1
	m.mu.Unlock()

	m.logger.Debug("history cleared")
	if m.onClear != nil {
		m.onClear()
	}
	return nil
}

// invoke runs fn, converting an error or a panic into an *ActionError.
func (m *Manager) invoke(ctx context.Context, op string, action Action, fn ActionFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newActionError(op, action, fmt.Errorf("%w: %v", ErrActionPanicked, r))
		}
		if err != nil {
			m.mu.Lock()
			m.stats.Failed++
			m.mu.Unlock()
			m.logger.Warn("action failed", "op", op, "id", action.ID(), "error", err)
			if m.onError != nil {
				m.onError(op, action, err)
			}
		}
	}()

	if err := fn(ctx); err != nil {
		return newActionError(op, action, err)
	}
	return nil
}

// release clears the execution guard and applies any bound change that was
// deferred while the guard was held.
func (m *Manager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.busy = false
	m.evictLocked()
}

// skipBusyLocked records a skipped call and unlocks the mutex.
func (m *Manager) skipBusyLocked(op string) error {
	m.stats.SkippedBusy++
	strict := m.strict
	m.mu.Unlock()

	m.logger.Debug("operation skipped, another is in flight", "op", op)
	if strict {
		return ErrBusy
	}
	return nil
}

// boundaryLocked reports a call made at the edge of the history and
// unlocks the mutex.
func (m *Manager) boundaryLocked(err error) error {
	strict := m.strict
	m.mu.Unlock()

	if strict {
		return err
	}
	return nil
}

// evictLocked trims entries from the front until the bound holds.
func (m *Manager) evictLocked() {
	excess := len(m.entries) - m.maxSize
	if excess <= 0 {
		return
	}
	m.entries = slices.Delete(m.entries, 0, excess)
	m.position -= excess
	if m.position < -1 {
		m.position = -1
	}
	m.stats.Evicted += uint64(excess)
	m.logger.Debug("history trimmed", "evicted", excess, "size", len(m.entries))
}

func (m *Manager) notify(fn Observer, entry Entry) {
	if fn != nil {
		fn(entry)
	}
}

// SetMaxHistorySize changes the bound. Values <= 0 restore the default.
// If the history is larger, the oldest entries are evicted, immediately when
// idle or as soon as the in-flight operation finishes.
func (m *Manager) SetMaxHistorySize(n int) {
	if n <= 0 {
		n = DefaultMaxHistorySize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxSize = n
	if !m.busy {
		m.evictLocked()
	}
}

// SetStrict switches between the lenient and strict skip policies.
func (m *Manager) SetStrict(strict bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strict = strict
}

// MaxHistorySize returns the current bound.
func (m *Manager) MaxHistorySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSize
}

// UndoAction returns the entry the next Undo would reverse.
func (m *Manager) UndoAction() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.position < 0 {
		return Entry{}, false
	}
	return m.entries[m.position], true
}

// RedoAction returns the entry the next Redo would re-execute.
func (m *Manager) RedoAction() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.position >= len(m.entries)-1 {
		return Entry{}, false
	}
	return m.entries[m.position+1], true
}

// CanUndo returns true if undo is available.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position >= 0
}

// CanRedo returns true if redo is available.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position < len(m.entries)-1
}

// History returns a copy of all recorded entries, oldest first.
func (m *Manager) History() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// HistorySize returns the number of recorded entries.
func (m *Manager) HistorySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// HistoryPosition returns the 1-based position of the cursor: the number of
// undoable entries.
func (m *Manager) HistoryPosition() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position + 1
}

// IsBusy returns true while an execute, undo or redo is in flight.
func (m *Manager) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Snapshot returns the entries, cursor and guard state under one lock.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Entries:  slices.Clone(m.entries),
		Position: m.position,
		MaxSize:  m.maxSize,
		Busy:     m.busy,
	}
}

// Stats returns activity counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
