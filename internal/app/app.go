// Package app wires the history manager to its configuration, logging,
// event bus, Lua action runtime and front ends, and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/actionhistory/internal/config"
	"github.com/dshills/actionhistory/internal/event"
	"github.com/dshills/actionhistory/internal/history"
	"github.com/dshills/actionhistory/internal/inspect"
	"github.com/dshills/actionhistory/internal/playbook"
	"github.com/dshills/actionhistory/internal/script"
	"github.com/dshills/actionhistory/internal/ui"
)

// Application is the central coordinator for all components.
type Application struct {
	mu sync.RWMutex

	// Core infrastructure
	config  *config.Config
	logger  *Logger
	bus     *event.Bus
	metrics *Metrics
	subs    []*event.Subscription

	// History and the state actions change
	manager *history.Manager
	store   *script.Store
	runtime *script.Runtime

	// Optional components
	watcher *config.Watcher

	// State
	running atomic.Bool
	closed  atomic.Bool

	// Options
	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the TOML configuration file. A missing
	// file leaves the defaults in place.
	ConfigPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer

	// LogJSON selects JSON log records.
	LogJSON bool

	// Debug forces debug logging.
	Debug bool

	// Watch reloads ConfigPath whenever it changes.
	Watch bool

	// ScriptPath is a Lua file of action definitions loaded at startup.
	ScriptPath string
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}

	if err := app.bootstrap(); err != nil {
		app.teardown()
		return nil, err
	}

	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Config
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		return NewComponentError("config", "load", err)
	}
	app.config = cfg

	// 2. Logger
	out := app.opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	app.logger = NewLogger(LoggerConfig{
		Level:  app.logLevel(cfg),
		Output: out,
		Prefix: "actionhistory",
		JSON:   app.opts.LogJSON,
	})

	// 3. Event bus and metrics
	app.bus = event.NewBus()
	app.metrics = NewMetrics()

	// 4. Lua runtime and its store
	app.store = script.NewStore()
	app.runtime = script.NewRuntime(app.store,
		script.WithTimeout(cfg.Script.Timeout.Std()),
		script.WithCallStackSize(cfg.Script.CallStackSize),
		script.WithLogger(app.logger.WithComponent("script").Slog()),
	)

	// 5. History manager, bridged onto the bus
	app.manager = history.New(
		history.WithMaxHistorySize(cfg.History.MaxSize),
		history.WithStrict(cfg.History.Strict),
		history.WithLogger(app.logger.WithComponent("history").Slog()),
		history.WithOnExecute(app.publisher(event.TopicHistoryExecuted)),
		history.WithOnUndo(app.publisher(event.TopicHistoryUndone)),
		history.WithOnRedo(app.publisher(event.TopicHistoryRedone)),
		history.WithOnClear(func() { app.publish(event.TopicHistoryCleared, nil) }),
		history.WithOnError(app.onActionError),
	)

	// 6. Subscriptions
	if err := app.setupSubscriptions(); err != nil {
		return NewComponentError("event", "subscribe", err)
	}

	// 7. Startup script
	if app.opts.ScriptPath != "" {
		if err := app.LoadScript(context.Background(), app.opts.ScriptPath); err != nil {
			return err
		}
	}

	// 8. Config watcher
	if app.opts.Watch {
		if app.opts.ConfigPath == "" {
			return NewComponentError("watcher", "start", ErrNoConfigFile)
		}
		w, err := config.NewWatcher(app.opts.ConfigPath, app.onConfigReload)
		if err != nil {
			return NewComponentError("watcher", "start", err)
		}
		app.watcher = w
	}

	app.logger.Debug("application ready",
		"max_size", cfg.History.MaxSize, "strict", cfg.History.Strict,
		"watch", app.watcher != nil)
	return nil
}

// logLevel picks the effective log level: Debug, then LogLevel, then config.
func (app *Application) logLevel(cfg *config.Config) LogLevel {
	switch {
	case app.opts.Debug:
		return LogLevelDebug
	case app.opts.LogLevel != "":
		return ParseLogLevel(app.opts.LogLevel)
	default:
		return ParseLogLevel(cfg.Log.Level)
	}
}

// LoadScript runs a Lua file of action definitions.
func (app *Application) LoadScript(ctx context.Context, path string) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return NewOperationError("script", path, err)
	}
	if err := app.runtime.LoadString(ctx, path, string(src)); err != nil {
		return NewOperationError("script", path, err)
	}
	app.logger.Info("script loaded", "path", path, "actions", len(app.runtime.Actions()))
	return nil
}

// NewScriptAction binds the named Lua action to args, timed into the
// application metrics.
func (app *Application) NewScriptAction(name string, args map[string]any) (history.Action, error) {
	a, err := app.runtime.NewAction(name, args)
	if err != nil {
		return nil, err
	}
	return app.metrics.Instrument(a), nil
}

// RunPlaybook loads the playbook at path, loads its script and runs its
// steps against the application's manager.
func (app *Application) RunPlaybook(ctx context.Context, path string) (*playbook.Report, error) {
	if app.closed.Load() {
		return nil, ErrShutdown
	}

	pb, err := playbook.Load(path)
	if err != nil {
		return nil, NewOperationError("playbook", path, err)
	}
	if pb.Script != "" {
		if err := app.runtime.LoadString(ctx, pb.ScriptName(), pb.Script); err != nil {
			return nil, NewOperationError("playbook", path, err)
		}
	}

	runner := playbook.NewRunner(app.manager, app.NewScriptAction,
		playbook.WithStore(app.store),
		playbook.WithLogger(app.logger.WithComponent("playbook").Slog()),
	)
	report, err := runner.Run(ctx, pb)
	if err != nil {
		return report, NewOperationError("playbook", path, err)
	}
	return report, nil
}

// RunInteractive runs the terminal front end on screen until the user
// quits or ctx is done. The screen is initialized and finalized here.
func (app *Application) RunInteractive(ctx context.Context, screen tcell.Screen) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := screen.Init(); err != nil {
		return NewComponentError("ui", "init screen", err)
	}
	defer screen.Fini()

	view, err := ui.New(screen, app.manager, app.store,
		ui.WithBus(app.bus),
		ui.WithScripts(app.runtime, func(name string) (history.Action, error) {
			return app.NewScriptAction(name, nil)
		}),
		ui.WithLogger(app.logger.WithComponent("ui").Slog()),
	)
	if err != nil {
		return NewComponentError("ui", "create view", err)
	}

	if err := view.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Snapshot renders the history and store as JSON.
func (app *Application) Snapshot() ([]byte, error) {
	doc, err := inspect.Snapshot(app.manager.Snapshot(), app.store.Snapshot())
	if err != nil {
		return nil, NewOperationError("snapshot", "", err)
	}
	return doc, nil
}

// Query evaluates a gjson path against a fresh snapshot and returns the
// raw JSON of the match.
func (app *Application) Query(path string) (string, bool, error) {
	doc, err := app.Snapshot()
	if err != nil {
		return "", false, err
	}
	res, ok, err := inspect.Query(doc, path)
	if err != nil {
		return "", false, NewOperationError("query", path, err)
	}
	return res.Raw, ok, nil
}

// Shutdown stops the watcher and releases the Lua runtime. It is safe to
// call more than once.
func (app *Application) Shutdown() error {
	if !app.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := app.teardown()
	app.logger.Debug("application shut down", "stats", fmt.Sprintf("%+v", app.manager.Stats()))
	return err
}

// teardown releases components in reverse initialization order.
func (app *Application) teardown() error {
	var errs []error

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			errs = append(errs, NewComponentError("watcher", "close", err))
		}
	}
	if app.bus != nil {
		for _, sub := range app.subs {
			_ = app.bus.Unsubscribe(sub)
		}
		app.subs = nil
	}
	if app.runtime != nil {
		if err := app.runtime.Close(); err != nil {
			errs = append(errs, NewComponentError("script", "close", err))
		}
	}
	return errors.Join(errs...)
}

// Config returns the current configuration.
func (app *Application) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// Manager returns the history manager.
func (app *Application) Manager() *history.Manager {
	return app.manager
}

// Store returns the store shared with Lua actions.
func (app *Application) Store() *script.Store {
	return app.store
}

// Runtime returns the Lua runtime.
func (app *Application) Runtime() *script.Runtime {
	return app.runtime
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// IsRunning returns true while the interactive front end is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}
