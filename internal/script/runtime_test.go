package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/actionhistory/internal/history"
)

const counterScript = `
actions.define("increment", {
	description = "Increment counter",
	execute = function(args)
		store.set("count", (store.get("count") or 0) + (args.by or 1))
	end,
	undo = function(args)
		store.set("count", (store.get("count") or 0) - (args.by or 1))
	end,
})

actions.define("fail", {
	execute = function() error("refused") end,
	undo = function() end,
})
`

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	r := NewRuntime(NewStore(), opts...)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.LoadString(context.Background(), "counter.lua", counterScript))
	return r
}

func count(t *testing.T, s *Store) float64 {
	t.Helper()
	v, ok := s.Get("count")
	if !ok {
		return 0
	}
	n, ok := v.(float64)
	require.True(t, ok, "count should be a number, got %T", v)
	return n
}

func TestLoadDefinesActions(t *testing.T) {
	r := newTestRuntime(t)

	assert.Equal(t, []string{"fail", "increment"}, r.Actions())

	desc, ok := r.Describe("increment")
	assert.True(t, ok)
	assert.Equal(t, "Increment counter", desc)

	desc, _ = r.Describe("fail")
	assert.Equal(t, "fail", desc, "description defaults to the name")
}

func TestActionExecuteUndo(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()

	a, err := r.NewAction("increment", map[string]any{"by": 5})
	require.NoError(t, err)
	assert.Equal(t, "Increment counter (by=5)", a.Description())
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, map[string]any{"by": 5}, a.Data())

	require.NoError(t, a.Execute(ctx))
	assert.Equal(t, 5.0, count(t, r.Store()))

	require.NoError(t, a.Undo(ctx))
	assert.Equal(t, 0.0, count(t, r.Store()))
}

func TestActionsInManager(t *testing.T) {
	r := newTestRuntime(t)
	ctx := context.Background()
	m := history.New()

	for i := 0; i < 3; i++ {
		a, err := r.NewAction("increment", nil)
		require.NoError(t, err)
		require.NoError(t, m.Execute(ctx, a))
	}
	assert.Equal(t, 3.0, count(t, r.Store()))

	require.NoError(t, m.Undo(ctx))
	require.NoError(t, m.Undo(ctx))
	assert.Equal(t, 1.0, count(t, r.Store()))

	require.NoError(t, m.Redo(ctx))
	assert.Equal(t, 2.0, count(t, r.Store()))
	assert.Equal(t, 2, m.HistoryPosition())
}

func TestLuaErrorBecomesCallError(t *testing.T) {
	r := newTestRuntime(t)
	m := history.New()

	a, err := r.NewAction("fail", nil)
	require.NoError(t, err)

	err = m.Execute(context.Background(), a)
	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "execute", cerr.Phase)
	assert.Contains(t, err.Error(), "refused")
	assert.Zero(t, m.HistorySize())
}

func TestUnknownAction(t *testing.T) {
	r := newTestRuntime(t)
	_, err := r.NewAction("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestInvalidDefinition(t *testing.T) {
	r := NewRuntime(nil)
	defer r.Close()

	err := r.LoadString(context.Background(), "bad.lua", `actions.define("half", { execute = function() end })`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrInvalidDefinition.Error())
	assert.Empty(t, r.Actions())
}

func TestSyntaxError(t *testing.T) {
	r := NewRuntime(nil)
	defer r.Close()

	err := r.LoadString(context.Background(), "broken.lua", `actions.define(`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.lua")
}

func TestSandbox(t *testing.T) {
	r := NewRuntime(nil)
	defer r.Close()
	ctx := context.Background()

	for _, code := range []string{
		`io.write("x")`,
		`os.exit(1)`,
		`dofile("/etc/passwd")`,
		`require("os")`,
	} {
		assert.Error(t, r.LoadString(ctx, "sandbox.lua", code), code)
	}
}

func TestStoreRejectsTables(t *testing.T) {
	r := NewRuntime(nil)
	defer r.Close()

	err := r.LoadString(context.Background(), "table.lua", `store.set("t", {})`)
	require.Error(t, err)
	assert.Equal(t, 0, r.Store().Len())
}

func TestTimeout(t *testing.T) {
	r := NewRuntime(nil, WithTimeout(50*time.Millisecond))
	defer r.Close()

	start := time.Now()
	err := r.LoadString(context.Background(), "loop.lua", `while true do end`)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClosedRuntime(t *testing.T) {
	r := NewRuntime(nil)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	err := r.LoadString(context.Background(), "late.lua", `x = 1`)
	assert.True(t, errors.Is(err, ErrRuntimeClosed))
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Set("b", "two")
	s.Set("a", 1.0)
	s.Set("gone", true)
	s.Delete("gone")
	s.Set("also-gone", "x")
	s.Set("also-gone", nil)

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, map[string]any{"a": 1.0, "b": "two"}, s.Snapshot())

	v, ok := s.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestLuaStoreKeys(t *testing.T) {
	r := NewRuntime(nil)
	defer r.Close()

	r.Store().Set("x", 1.0)
	r.Store().Set("y", 2.0)
	require.NoError(t, r.LoadString(context.Background(), "keys.lua", `store.set("n", #store.keys())`))

	v, _ := r.Store().Get("n")
	assert.Equal(t, 2.0, v)
}
