package script

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"
)

func TestExecutorRunsOnOneGoroutine(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go exec.Run(ctx)
	defer exec.Close()

	for i := 0; i < 10; i++ {
		err := exec.Execute(ctx, func(L *lua.LState) error {
			return L.DoString(`n = (n or 0) + 1`)
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}

	var n lua.LValue
	_ = exec.Execute(ctx, func(L *lua.LState) error {
		n = L.GetGlobal("n")
		return nil
	})
	if n.String() != "10" {
		t.Errorf("n = %s, want 10", n)
	}
}

func TestExecutorRecoversPanic(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 1)
	go exec.Run(context.Background())
	defer exec.Close()

	err := exec.Execute(context.Background(), func(*lua.LState) error {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestExecutorClosed(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 1)
	exec.Close()
	exec.Close()

	if !exec.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	err := exec.Execute(context.Background(), func(*lua.LState) error { return nil })
	if !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Execute() error = %v, want ErrExecutorClosed", err)
	}
}

func TestExecutorContextCancelled(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	// No Run loop: the call can be queued but never completes.
	exec := NewExecutor(L, 1)
	defer exec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := exec.Execute(ctx, func(*lua.LState) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want DeadlineExceeded", err)
	}
}

func TestExecutorCancelledWhileQueuedNeverRuns(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 4)
	go exec.Run(context.Background())
	defer exec.Close()

	// Hold the worker so the second call stays queued.
	started := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- exec.Execute(context.Background(), func(*lua.LState) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	second := make(chan error, 1)
	go func() {
		second <- exec.Execute(ctx, func(*lua.LState) error {
			ran.Store(true)
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-second; !errors.Is(err, context.Canceled) {
		t.Errorf("queued Execute() error = %v, want Canceled", err)
	}
	close(release)
	if err := <-first; err != nil {
		t.Errorf("first Execute() error = %v", err)
	}

	// A later call runs after the abandoned one was skipped.
	if err := exec.Execute(context.Background(), func(*lua.LState) error { return nil }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ran.Load() {
		t.Error("abandoned call ran")
	}
}

func TestExecutorReportsResultOfStartedCall(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	exec := NewExecutor(L, 1)
	go exec.Run(context.Background())
	defer exec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sentinel := errors.New("finished")
	err := exec.Execute(ctx, func(*lua.LState) error {
		// The caller's context ends while the call is running; the
		// call's own outcome must still be reported.
		cancel()
		time.Sleep(20 * time.Millisecond)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("Execute() error = %v, want the call's own result", err)
	}
}
