package script

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Call states. A call runs only if the worker moves it from queued to
// running before its caller abandons it.
const (
	callQueued int32 = iota
	callRunning
	callAbandoned
)

// call is a queued Lua operation.
type call struct {
	fn     func(L *lua.LState) error
	result chan error
	state  atomic.Int32
}

// Executor serializes all Lua operations through a single goroutine.
//
// Usage:
//
//	exec := NewExecutor(L, 16)
//	go exec.Run(ctx)
//	defer exec.Close()
//
//	err := exec.Execute(ctx, func(L *lua.LState) error {
//	    return L.DoString(`x = 1`)
//	})
type Executor struct {
	L      *lua.LState
	queue  chan *call
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewExecutor creates a new Executor for the given Lua state.
// The queue size determines how many operations can be buffered.
func NewExecutor(L *lua.LState, queueSize int) *Executor {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Executor{
		L:     L,
		queue: make(chan *call, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes Lua operations from the queue until the context is
// cancelled or Close is called. It must run on the goroutine that owns L.
func (e *Executor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.drain(ctx.Err())
			return
		case <-e.done:
			e.drain(ErrExecutorClosed)
			return
		case c := <-e.queue:
			if !c.state.CompareAndSwap(callQueued, callRunning) {
				close(c.result)
				continue
			}
			c.result <- e.run(c)
			close(c.result)
		}
	}
}

// run executes one operation with panic recovery.
func (e *Executor) run(c *call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = v
			default:
				err = fmt.Errorf("lua panic: %v", v)
			}
		}
	}()
	return c.fn(e.L)
}

// drain fails every queued operation with err.
func (e *Executor) drain(err error) {
	for {
		select {
		case c := <-e.queue:
			c.result <- err
			close(c.result)
		default:
			return
		}
	}
}

// Execute queues fn and blocks until it has run or ctx is done. If ctx is
// done before fn starts, fn never runs and ctx.Err() is returned. Once fn
// has started, Execute waits for its result, so fn should honour ctx.
func (e *Executor) Execute(ctx context.Context, fn func(L *lua.LState) error) error {
	if e.closed.Load() {
		return ErrExecutorClosed
	}

	c := &call{fn: fn, result: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrExecutorClosed
	case e.queue <- c:
	}

	select {
	case <-ctx.Done():
		if c.state.CompareAndSwap(callQueued, callAbandoned) {
			return ctx.Err()
		}
	case <-e.done:
		if c.state.CompareAndSwap(callQueued, callAbandoned) {
			return ErrExecutorClosed
		}
	case err, ok := <-c.result:
		if !ok {
			return ErrExecutorClosed
		}
		return err
	}

	// fn is already running; its effects are real, so report its result.
	err, ok := <-c.result
	if !ok {
		return ErrExecutorClosed
	}
	return err
}

// Close stops the executor. Queued operations fail with ErrExecutorClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.done)
	})
}

// IsClosed returns true if the executor has been closed.
func (e *Executor) IsClosed() bool {
	return e.closed.Load()
}
