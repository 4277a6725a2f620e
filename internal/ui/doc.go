// Package ui is an interactive terminal front end for a history manager.
//
// The view lists the history with undoable entries in full colour and
// redoable entries dimmed, shows a status line and the contents of the
// shared store, and maps single keys to operations:
//
//	a, +   increment the counter
//	-      decrement the counter
//	1-9    run the nth scripted action
//	u      undo
//	r      redo
//	c      clear
//	q      quit
//
// Operations run on their own goroutines so that a slow action leaves the
// view responsive and the busy indicator visible.
package ui
