package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/actionhistory/internal/event"
	"github.com/dshills/actionhistory/internal/history"
	"github.com/dshills/actionhistory/internal/script"
)

type harness struct {
	screen  tcell.SimulationScreen
	manager *history.Manager
	store   *script.Store
	view    *View
	done    chan error
	cancel  context.CancelFunc

	mu    sync.Mutex
	frame string
}

func newHarness(t *testing.T, mopts []history.Option, opts ...Option) *harness {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(60, 16)
	t.Cleanup(screen.Fini)

	h := &harness{
		screen:  screen,
		manager: history.New(mopts...),
		store:   script.NewStore(),
		done:    make(chan error, 1),
	}
	opts = append(opts, WithRefreshInterval(10*time.Millisecond))
	v, err := New(screen, h.manager, h.store, opts...)
	require.NoError(t, err)
	h.view = v
	v.afterDraw = h.capture

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- v.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("view did not stop")
		}
	})
	return h
}

func (h *harness) key(r rune) {
	h.screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
}

// capture copies the shown frame. It runs on the event loop, which is the
// only writer of the screen's front buffer.
func (h *harness) capture() {
	cells, width, _ := h.screen.GetContents()
	var b strings.Builder
	for i, c := range cells {
		if i > 0 && i%width == 0 {
			b.WriteByte('\n')
		}
		if len(c.Runes) == 0 {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}

	h.mu.Lock()
	h.frame = b.String()
	h.mu.Unlock()
}

// text returns the last frame the view showed.
func (h *harness) text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

func (h *harness) waitFor(t *testing.T, substr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		text := h.text()
		if substr != "BUSY" && strings.Contains(text, "BUSY") {
			return false
		}
		return strings.Contains(text, substr)
	}, 2*time.Second, 5*time.Millisecond, "screen never showed %q:\n%s", substr, h.text())
}

func count(s *script.Store) float64 {
	v, _ := s.Get(CounterKey)
	n, _ := v.(float64)
	return n
}

func TestViewKeys(t *testing.T) {
	h := newHarness(t, nil)
	h.waitFor(t, "(no history)")

	h.key('a')
	h.waitFor(t, "position 1/1")
	h.key('+')
	h.waitFor(t, "position 2/2")
	h.key('-')
	h.waitFor(t, "position 3/3")
	assert.Equal(t, 1.0, count(h.store))
	h.waitFor(t, "Subtract 1 from count")
	h.waitFor(t, "store: count=1")

	h.key('u')
	h.waitFor(t, "position 2/3")
	assert.Equal(t, 2.0, count(h.store))
	h.waitFor(t, "redo yes")

	h.key('r')
	h.waitFor(t, "position 3/3")

	h.key('c')
	h.waitFor(t, "position 0/0")
	assert.Equal(t, 0, h.manager.HistorySize())
}

func TestViewQuit(t *testing.T) {
	h := newHarness(t, nil)
	h.waitFor(t, "Action history")

	h.key('q')
	select {
	case err := <-h.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("q did not stop the view")
	}
	h.done <- nil // satisfy cleanup
}

func TestViewAfterDrawSeesShownFrame(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(40, 10)
	defer screen.Fini()

	v, err := New(screen, history.New(), nil)
	require.NoError(t, err)

	var frames []string
	v.afterDraw = func() {
		cells, _, _ := screen.GetContents()
		var b strings.Builder
		for _, c := range cells {
			if len(c.Runes) > 0 {
				b.WriteRune(c.Runes[0])
			}
		}
		frames = append(frames, b.String())
	}

	v.draw()
	v.setMessage("first", false)
	v.draw()

	require.Len(t, frames, 2)
	assert.Contains(t, frames[0], "Action history")
	assert.NotContains(t, frames[0], "first")
	assert.Contains(t, frames[1], "first")
}

func TestViewShowsBusy(t *testing.T) {
	h := newHarness(t, nil)
	h.waitFor(t, "Action history")

	release := make(chan struct{})
	slow := history.NewAction("slow", func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, func(context.Context) error { return nil })

	go func() { _ = h.manager.Execute(context.Background(), slow) }()
	h.waitFor(t, "BUSY")

	close(release)
	h.waitFor(t, "position 1/1")
	assert.NotContains(t, h.text(), "BUSY")
}

type fakeScripts struct{ names []string }

func (f fakeScripts) Actions() []string { return f.names }

func (f fakeScripts) Describe(name string) (string, bool) { return name, true }

func TestViewScriptKeys(t *testing.T) {
	var built []string
	factory := func(name string) (history.Action, error) {
		built = append(built, name)
		if name == "broken" {
			return nil, errors.New("cannot build")
		}
		return history.NewAction("script "+name, func(context.Context) error { return nil },
			func(context.Context) error { return nil }), nil
	}
	h := newHarness(t, nil, WithScripts(fakeScripts{names: []string{"alpha", "broken"}}, factory))
	h.waitFor(t, "Action history")

	h.key('1')
	h.waitFor(t, "script alpha")

	h.key('2')
	h.waitFor(t, "cannot build")

	h.key('9')
	h.waitFor(t, "no scripted action 9")
}

func TestViewBusMessages(t *testing.T) {
	bus := event.NewBus()
	publish := func(topic event.Topic) history.Observer {
		return func(e history.Entry) {
			_ = bus.Publish(context.Background(), event.New(topic, e, "test"))
		}
	}
	mopts := []history.Option{
		history.WithOnExecute(publish(event.TopicHistoryExecuted)),
		history.WithOnUndo(publish(event.TopicHistoryUndone)),
	}
	h := newHarness(t, mopts, WithBus(bus))
	h.waitFor(t, "Action history")

	h.key('a')
	h.waitFor(t, "executed: Add 1 to count")
	h.key('u')
	h.waitFor(t, "undone: Add 1 to count")

	require.NoError(t, bus.Publish(context.Background(), event.New(event.TopicConfigReloaded, nil, "test")))
	h.waitFor(t, "configuration reloaded")
}

func TestViewReportsFailure(t *testing.T) {
	h := newHarness(t, []history.Option{history.WithStrict(true)})
	h.waitFor(t, "Action history")

	h.key('u')
	h.waitFor(t, "undo: nothing to undo")
	msg, isErr := h.view.Message()
	assert.True(t, isErr)
	assert.Contains(t, msg, "nothing to undo")
}

func TestNewRejectsBadTheme(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	theme := DefaultTheme
	theme.Accent = "not-a-colour"
	_, err := New(screen, history.New(), nil, WithTheme(theme))
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語テキスト", 5, "日本…"},
		{"hello", 0, ""},
		{"e\u0301te\u0301", 2, "e\u0301…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.width), "truncate(%q, %d)", tt.in, tt.width)
	}
}
