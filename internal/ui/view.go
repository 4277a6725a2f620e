package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/actionhistory/internal/event"
	"github.com/dshills/actionhistory/internal/history"
	"github.com/dshills/actionhistory/internal/script"
)

// CounterKey is the store key changed by the built-in counter actions.
const CounterKey = "count"

// DefaultRefreshInterval is how often the view redraws while operations
// are in flight.
const DefaultRefreshInterval = 150 * time.Millisecond

// quitSignal is posted to the screen to stop the event loop.
type quitSignal struct{}

// Scripts lists the scripted actions bound to the digit keys.
type Scripts interface {
	Actions() []string
	Describe(name string) (string, bool)
}

// Factory builds the scripted action with the given name.
type Factory func(name string) (history.Action, error)

// View renders a history manager on a tcell screen and drives it from key
// presses.
type View struct {
	screen  tcell.Screen
	manager *history.Manager
	store   *script.Store
	bus     *event.Bus
	scripts Scripts
	factory Factory
	logger  *slog.Logger
	refresh time.Duration
	theme   Theme
	styles  styles

	// afterDraw runs on the event loop after each frame is shown.
	afterDraw func()

	inflight atomic.Int32
	wg       sync.WaitGroup

	mu      sync.Mutex
	message string
	isError bool
}

// Option configures a View.
type Option func(*View)

// WithBus redraws the view, and updates its message line, on history and
// config events.
func WithBus(bus *event.Bus) Option {
	return func(v *View) {
		v.bus = bus
	}
}

// WithScripts binds the digit keys to scripted actions.
func WithScripts(scripts Scripts, factory Factory) Option {
	return func(v *View) {
		v.scripts = scripts
		v.factory = factory
	}
}

// WithTheme sets the colour theme.
func WithTheme(theme Theme) Option {
	return func(v *View) {
		v.theme = theme
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithRefreshInterval sets how often the view redraws while busy.
func WithRefreshInterval(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.refresh = d
		}
	}
}

// New creates a view. The screen must already be initialized.
func New(screen tcell.Screen, m *history.Manager, store *script.Store, opts ...Option) (*View, error) {
	if store == nil {
		store = script.NewStore()
	}
	v := &View{
		screen:  screen,
		manager: m,
		store:   store,
		logger:  slog.New(slog.DiscardHandler),
		refresh: DefaultRefreshInterval,
		theme:   DefaultTheme,
	}
	for _, opt := range opts {
		opt(v)
	}

	st, err := v.theme.resolve()
	if err != nil {
		return nil, err
	}
	v.styles = st
	return v, nil
}

// Run draws the view and processes input until q is pressed, the screen is
// finalized or ctx is done. It waits for in-flight operations before
// returning.
func (v *View) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		v.wg.Wait()
	}()

	if v.bus != nil {
		sub, err := v.bus.Subscribe("**", v.onEvent)
		if err != nil {
			return fmt.Errorf("subscribing to events: %w", err)
		}
		defer func() { _ = v.bus.Unsubscribe(sub) }()
	}

	go v.ticker(ctx)
	go func() {
		<-ctx.Done()
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(quitSignal{}))
	}()

	v.setMessage("a/+ add  - subtract  1-9 script  u undo  r redo  c clear  q quit", false)
	v.draw()

	for {
		switch ev := v.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventKey:
			if v.handleKey(ctx, ev) {
				return nil
			}
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitSignal); ok {
				return ctx.Err()
			}
		}
		v.draw()
	}
}

// handleKey maps a key press to an operation. It reports whether to quit.
func (v *View) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch r := ev.Rune(); {
	case r == 'q':
		return true
	case r == 'a' || r == '+':
		v.spawn(ctx, "execute", func(ctx context.Context) error {
			return v.manager.Execute(ctx, counterAction(v.store, 1))
		})
	case r == '-':
		v.spawn(ctx, "execute", func(ctx context.Context) error {
			return v.manager.Execute(ctx, counterAction(v.store, -1))
		})
	case r == 'u':
		if !v.manager.CanUndo() {
			v.setMessage("nothing to undo", false)
		}
		v.spawn(ctx, "undo", v.manager.Undo)
	case r == 'r':
		if !v.manager.CanRedo() {
			v.setMessage("nothing to redo", false)
		}
		v.spawn(ctx, "redo", v.manager.Redo)
	case r == 'c':
		if err := v.manager.Clear(); err != nil {
			v.setMessage("clear: "+err.Error(), true)
		}
	case r >= '1' && r <= '9':
		v.runScript(ctx, int(r-'1'))
	}
	return false
}

// runScript executes the scripted action at index.
func (v *View) runScript(ctx context.Context, index int) {
	if v.scripts == nil || v.factory == nil {
		v.setMessage("no scripted actions loaded", true)
		return
	}
	names := v.scripts.Actions()
	if index >= len(names) {
		v.setMessage(fmt.Sprintf("no scripted action %d", index+1), true)
		return
	}
	action, err := v.factory(names[index])
	if err != nil {
		v.setMessage(err.Error(), true)
		return
	}
	v.spawn(ctx, "execute", func(ctx context.Context) error {
		return v.manager.Execute(ctx, action)
	})
}

// spawn runs op on its own goroutine and reports its error on the message
// line.
func (v *View) spawn(ctx context.Context, name string, op func(context.Context) error) {
	v.wg.Add(1)
	v.inflight.Add(1)
	go func() {
		defer v.wg.Done()
		defer v.inflight.Add(-1)
		defer v.redraw()

		if err := op(ctx); err != nil {
			v.logger.Debug("operation failed", "op", name, "error", err)
			if !errors.Is(err, context.Canceled) {
				v.setMessage(name+": "+err.Error(), true)
			}
		}
	}()
	v.redraw()
}

// onEvent updates the message line from bus events.
func (v *View) onEvent(_ context.Context, ev event.Event) error {
	switch ev.Topic {
	case event.TopicHistoryExecuted, event.TopicHistoryUndone, event.TopicHistoryRedone:
		if e, ok := ev.Payload.(history.Entry); ok {
			verb := strings.TrimPrefix(ev.Topic.String(), "history.")
			v.setMessage(verb+": "+e.Description(), false)
		}
	case event.TopicHistoryCleared:
		v.setMessage("history cleared", false)
	case event.TopicHistoryFailed:
		if err, ok := ev.Payload.(error); ok {
			v.setMessage(err.Error(), true)
		}
	case event.TopicConfigReloaded:
		v.setMessage("configuration reloaded", false)
	}
	v.redraw()
	return nil
}

// ticker redraws periodically while operations are in flight.
func (v *View) ticker(ctx context.Context) {
	t := time.NewTicker(v.refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if v.inflight.Load() > 0 || v.manager.IsBusy() {
				v.redraw()
			}
		}
	}
}

// redraw asks the event loop to draw. Safe from any goroutine.
func (v *View) redraw() {
	_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (v *View) setMessage(msg string, isError bool) {
	v.mu.Lock()
	v.message, v.isError = msg, isError
	v.mu.Unlock()
}

// Message returns the current message line.
func (v *View) Message() (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message, v.isError
}

// counterAction adds delta to the store counter.
func counterAction(store *script.Store, delta float64) *history.FuncAction {
	desc := fmt.Sprintf("Add %g to %s", delta, CounterKey)
	if delta < 0 {
		desc = fmt.Sprintf("Subtract %g from %s", -delta, CounterKey)
	}
	add := func(d float64) history.ActionFunc {
		return func(context.Context) error {
			n, _ := store.Get(CounterKey)
			cur, _ := n.(float64)
			store.Set(CounterKey, cur+d)
			return nil
		}
	}
	return history.NewAction(desc, add(delta), add(-delta),
		history.WithData(map[string]any{"delta": delta}))
}
