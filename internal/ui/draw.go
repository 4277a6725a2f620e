package ui

import (
	"fmt"
	"strings"

	"github.com/dshills/actionhistory/internal/history"
)

// draw renders the whole view. It must only be called from the event loop.
func (v *View) draw() {
	st := v.styles
	v.screen.SetStyle(st.base)
	v.screen.Clear()

	width, height := v.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}

	state := v.manager.Snapshot()

	// Title row.
	fillRow(v.screen, 0, width, st.base)
	drawText(v.screen, 1, 0, width-1, st.title, "Action history")
	bound := fmt.Sprintf("max %d", state.MaxSize)
	if len(bound)+2 < width {
		drawText(v.screen, width-len(bound)-1, 0, len(bound), st.base, bound)
	}

	// Footer: store, message and status rows.
	listTop, listBottom := 2, height-4
	if listBottom > listTop {
		v.drawEntries(state, listTop, listBottom, width)
	}
	if height >= 3 {
		v.drawStore(height-3, width)
	}
	if height >= 2 {
		msg, isErr := v.Message()
		style := st.base
		if isErr {
			style = st.err
		}
		drawText(v.screen, 1, height-2, width-1, style, msg)
	}
	v.drawStatus(state, height-1, width)

	v.screen.Show()
	if v.afterDraw != nil {
		v.afterDraw()
	}
}

// drawEntries renders the history list between rows top and bottom,
// scrolled to keep the cursor visible.
func (v *View) drawEntries(state history.State, top, bottom, width int) {
	st := v.styles
	rows := bottom - top
	if len(state.Entries) == 0 {
		drawText(v.screen, 3, top, width-3, st.redoable, "(no history)")
		return
	}

	start := 0
	if len(state.Entries) > rows {
		start = min(max(state.Position-rows/2, 0), len(state.Entries)-rows)
	}

	for row := 0; row < rows && start+row < len(state.Entries); row++ {
		i := start + row
		e := state.Entries[i]
		y := top + row

		style := st.undoable
		if i > state.Position {
			style = st.redoable
		}
		if i == state.Position {
			drawText(v.screen, 1, y, 1, st.cursor, "▶")
		}
		label := fmt.Sprintf("%3d  %s", i+1, e.Description())
		drawText(v.screen, 3, y, width-3, style, label)
	}
}

// drawStore renders the store contents on one row.
func (v *View) drawStore(y, width int) {
	snap := v.store.Snapshot()
	keys := v.store.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if val, ok := snap[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, val))
		}
	}
	line := "store: " + strings.Join(parts, "  ")
	if len(parts) == 0 {
		line = "store: (empty)"
	}
	drawText(v.screen, 1, y, width-1, v.styles.base, line)
}

// drawStatus renders the status bar.
func (v *View) drawStatus(state history.State, y, width int) {
	st := v.styles
	fillRow(v.screen, y, width, st.status)

	status := fmt.Sprintf("position %d/%d  undo %s  redo %s",
		state.Position+1, len(state.Entries), yesNo(state.CanUndo()), yesNo(state.CanRedo()))
	used := drawText(v.screen, 1, y, width-1, st.status, status)

	if state.Busy {
		const label = "BUSY"
		x := width - len(label) - 1
		if x > used+1 {
			drawText(v.screen, x, y, len(label), st.busy, label)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
