package script

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/actionhistory/internal/history"
)

// Action is a history.Action backed by a Lua definition.
type Action struct {
	id          string
	name        string
	description string
	args        map[string]any

	runtime *Runtime
	def     definition
}

var _ history.Action = (*Action)(nil)

func newAction(r *Runtime, name string, def definition, args map[string]any) *Action {
	return &Action{
		id:          uuid.NewString(),
		name:        name,
		description: describe(def.description, args),
		args:        maps.Clone(args),
		runtime:     r,
		def:         def,
	}
}

// describe appends arguments to a description: "Add item (name=milk)".
func describe(desc string, args map[string]any) string {
	if len(args) == 0 {
		return desc
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return fmt.Sprintf("%s (%s)", desc, strings.Join(parts, ", "))
}

// ID returns the action's unique identifier.
func (a *Action) ID() string { return a.id }

// Name returns the Lua definition name.
func (a *Action) Name() string { return a.name }

// Description returns the definition's description with its arguments.
func (a *Action) Description() string { return a.description }

// Data returns the arguments passed to the Lua functions.
func (a *Action) Data() any { return maps.Clone(a.args) }

// Execute calls the definition's execute function.
func (a *Action) Execute(ctx context.Context) error {
	if err := a.runtime.invoke(ctx, a.def.execute, a.args); err != nil {
		return &CallError{Action: a.name, Phase: "execute", Err: err}
	}
	return nil
}

// Undo calls the definition's undo function.
func (a *Action) Undo(ctx context.Context) error {
	if err := a.runtime.invoke(ctx, a.def.undo, a.args); err != nil {
		return &CallError{Action: a.name, Phase: "undo", Err: err}
	}
	return nil
}
