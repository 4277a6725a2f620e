// Package history provides the action-history (undo/redo) engine.
//
// A Manager keeps an ordered, bounded log of reversible actions and a cursor
// separating the undoable entries from the redoable ones:
//
//	entries:  [A] [B] [C] [D]
//	                   ^
//	                position (C is the next undo, D the next redo)
//
// # Actions
//
// Anything implementing Action can be recorded. FuncAction adapts a pair of
// closures:
//
//	m := history.New(history.WithMaxHistorySize(100))
//
//	err := m.Execute(ctx, history.NewAction("Add item",
//	    func(ctx context.Context) error { return list.Add(item) },
//	    func(ctx context.Context) error { return list.Remove(item) },
//	))
//
// # Execution guard
//
// Execute, Undo and Redo share a busy flag. A call that arrives while another
// is in flight is skipped rather than queued: in the default lenient mode it
// returns nil, with WithStrict it returns ErrBusy. The flag is released on
// every exit path, including a panicking action.
//
// # Forks
//
// Executing a new action after one or more undos discards every redoable
// entry. Entries evicted for size are always taken from the front and the
// cursor is shifted so it still names the same logical action.
//
// # Observers
//
// WithOnExecute, WithOnUndo and WithOnRedo register callbacks that run
// synchronously after the corresponding transition has committed.
package history
