package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Theme holds hex colours for the view.
type Theme struct {
	Background string
	Foreground string
	Accent     string // cursor marker and title
	Busy       string
	Error      string

	// RedoableBlend is how far redoable entries fade from Foreground
	// towards Background, from 0 to 1.
	RedoableBlend float64
}

// DefaultTheme is a dark theme.
var DefaultTheme = Theme{
	Background:    "#1d2021",
	Foreground:    "#ebdbb2",
	Accent:        "#83a598",
	Busy:          "#fabd2f",
	Error:         "#fb4934",
	RedoableBlend: 0.55,
}

// styles are the resolved tcell styles for a theme.
type styles struct {
	base     tcell.Style
	title    tcell.Style
	undoable tcell.Style
	redoable tcell.Style
	cursor   tcell.Style
	status   tcell.Style
	busy     tcell.Style
	err      tcell.Style
}

// resolve parses the theme's colours.
func (t Theme) resolve() (styles, error) {
	parse := func(name, hex string) (colorful.Color, error) {
		c, err := colorful.Hex(hex)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("theme %s: %w", name, err)
		}
		return c, nil
	}

	bg, err := parse("background", t.Background)
	if err != nil {
		return styles{}, err
	}
	fg, err := parse("foreground", t.Foreground)
	if err != nil {
		return styles{}, err
	}
	accent, err := parse("accent", t.Accent)
	if err != nil {
		return styles{}, err
	}
	busy, err := parse("busy", t.Busy)
	if err != nil {
		return styles{}, err
	}
	errc, err := parse("error", t.Error)
	if err != nil {
		return styles{}, err
	}

	blend := min(max(t.RedoableBlend, 0), 1)
	faded := fg.BlendLab(bg, blend).Clamped()
	// Status bar sits on a slightly lifted background.
	bar := bg.BlendLab(fg, 0.15).Clamped()

	base := tcell.StyleDefault.Background(toTcell(bg)).Foreground(toTcell(fg))
	return styles{
		base:     base,
		title:    base.Foreground(toTcell(accent)).Bold(true),
		undoable: base,
		redoable: base.Foreground(toTcell(faded)),
		cursor:   base.Foreground(toTcell(accent)).Bold(true),
		status:   tcell.StyleDefault.Background(toTcell(bar)).Foreground(toTcell(fg)),
		busy:     tcell.StyleDefault.Background(toTcell(bar)).Foreground(toTcell(busy)).Bold(true),
		err:      base.Foreground(toTcell(errc)),
	}, nil
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
