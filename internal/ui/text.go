package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// truncate shortens s to at most width terminal cells, ending it with an
// ellipsis when anything was cut. Grapheme clusters are never split.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}

	target := width - uniseg.StringWidth(ellipsis)
	var b strings.Builder
	used := 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > target {
			break
		}
		used += w
		b.WriteString(cluster)
	}
	b.WriteString(ellipsis)
	return b.String()
}

// drawText writes s at (x, y), clipped to width cells, and returns the
// number of cells used.
func drawText(screen tcell.Screen, x, y, width int, style tcell.Style, s string) int {
	s = truncate(s, width)
	used := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		runes := []rune(cluster)
		screen.SetContent(x+used, y, runes[0], runes[1:], style)
		used += w
	}
	return used
}

// fillRow paints a full row in style.
func fillRow(screen tcell.Screen, y, width int, style tcell.Style) {
	for x := 0; x < width; x++ {
		screen.SetContent(x, y, ' ', nil, style)
	}
}
