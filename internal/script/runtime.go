package script

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for the Lua runtime.
const (
	DefaultTimeout       = 5 * time.Second
	DefaultCallStackSize = 256
)

// definition is a named action registered by actions.define.
type definition struct {
	description string
	execute     *lua.LFunction
	undo        *lua.LFunction
}

// Runtime is a sandboxed Lua state plus the action definitions loaded into it.
type Runtime struct {
	L     *lua.LState
	exec  *Executor
	store *Store

	timeout       time.Duration
	callStackSize int
	logger        *slog.Logger

	mu      sync.RWMutex
	defs    map[string]definition
	cancel  context.CancelFunc
	stopped chan struct{}
	closed  bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithTimeout bounds each Lua call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithCallStackSize sets the Lua call stack depth.
func WithCallStackSize(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.callStackSize = n
		}
	}
}

// WithLogger routes Lua print output and runtime messages to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates a sandboxed runtime whose store module is backed by store.
func NewRuntime(store *Store, opts ...Option) *Runtime {
	if store == nil {
		store = NewStore()
	}
	r := &Runtime{
		store:         store,
		timeout:       DefaultTimeout,
		callStackSize: DefaultCallStackSize,
		logger:        slog.New(slog.DiscardHandler),
		defs:          make(map[string]definition),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.L = lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: r.callStackSize,
	})
	openSafeLibraries(r.L)
	r.installPrint()
	r.installStore()
	r.installActions()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.exec = NewExecutor(r.L, 16)
	go func() {
		defer close(r.stopped)
		r.exec.Run(ctx)
	}()

	return r
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Base opens these; they reach the file system.
	for _, name := range []string{"dofile", "loadfile"} {
		L.SetGlobal(name, lua.LNil)
	}
}

func (r *Runtime) installPrint() {
	r.L.SetGlobal("print", r.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			args = append(args, L.Get(i).String())
		}
		r.logger.Info("lua print", "args", args)
		return 0
	}))
}

func (r *Runtime) installStore() {
	mod := r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, ok := r.store.Get(L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(toLua(L, v))
			return 1
		},
		"set": func(L *lua.LState) int {
			key := L.CheckString(1)
			v, ok := fromLua(L.Get(2))
			if !ok {
				L.ArgError(2, "store values must be nil, boolean, number or string")
				return 0
			}
			r.store.Set(key, v)
			return 0
		},
		"delete": func(L *lua.LState) int {
			r.store.Delete(L.CheckString(1))
			return 0
		},
		"keys": func(L *lua.LState) int {
			L.Push(toLua(L, r.store.Keys()))
			return 1
		},
	})
	r.L.SetGlobal("store", mod)
}

func (r *Runtime) installActions() {
	mod := r.L.SetFuncs(r.L.NewTable(), map[string]lua.LGFunction{
		"define": func(L *lua.LState) int {
			name := L.CheckString(1)
			def := L.CheckTable(2)

			exec, ok1 := def.RawGetString("execute").(*lua.LFunction)
			undo, ok2 := def.RawGetString("undo").(*lua.LFunction)
			if name == "" || !ok1 || !ok2 {
				L.RaiseError("%s: %q needs execute and undo functions", ErrInvalidDefinition, name)
				return 0
			}
			desc := name
			if d, ok := def.RawGetString("description").(lua.LString); ok && d != "" {
				desc = string(d)
			}

			r.mu.Lock()
			r.defs[name] = definition{description: desc, execute: exec, undo: undo}
			r.mu.Unlock()
			return 0
		},
	})
	r.L.SetGlobal("actions", mod)
}

// Store returns the store backing the Lua store module.
func (r *Runtime) Store() *Store {
	return r.store
}

// LoadString runs a chunk of Lua source, typically a set of actions.define
// calls. name is used in error messages.
func (r *Runtime) LoadString(ctx context.Context, name, code string) error {
	err := r.run(ctx, func(L *lua.LState) error {
		fn, err := L.Load(strings.NewReader(code), name)
		if err != nil {
			return err
		}
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	return nil
}

// Actions returns the names of all defined actions, sorted.
func (r *Runtime) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the description of a defined action.
func (r *Runtime) Describe(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def.description, ok
}

// NewAction binds the named definition to args. The returned action can be
// handed to a history.Manager.
func (r *Runtime) NewAction(name string, args map[string]any) (*Action, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return newAction(r, name, def, args), nil
}

// invoke calls fn(args) on the executor goroutine.
func (r *Runtime) invoke(ctx context.Context, fn *lua.LFunction, args map[string]any) error {
	return r.run(ctx, func(L *lua.LState) error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, toLua(L, args))
	})
}

// run executes fn on the executor with the runtime timeout applied.
func (r *Runtime) run(ctx context.Context, fn func(L *lua.LState) error) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrRuntimeClosed
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	return r.exec.Execute(ctx, func(L *lua.LState) error {
		L.SetContext(ctx)
		defer L.RemoveContext()
		return fn(L)
	})
}

// Close stops the executor and releases the Lua state. It is safe to call
// more than once.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.exec.Close()
	r.cancel()
	<-r.stopped
	r.L.Close()
	return nil
}
