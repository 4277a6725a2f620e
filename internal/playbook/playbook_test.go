package playbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	pb, err := Parse([]byte(`
name: demo
max_size: 3
strict: true
script: |
  actions.define("noop", {execute = function() end, undo = function() end})
steps:
  - op: execute
    action: noop
    args: {by: 2, label: two}
  - op: undo
  - op: expect
    size: 1
    position: 0
    can_redo: true
    store: {count: 0}
`))
	require.NoError(t, err)

	assert.Equal(t, "demo", pb.Name)
	require.NotNil(t, pb.MaxSize)
	assert.Equal(t, 3, *pb.MaxSize)
	require.NotNil(t, pb.Strict)
	assert.True(t, *pb.Strict)
	require.Len(t, pb.Steps, 3)
	assert.Equal(t, OpExecute, pb.Steps[0].Op)
	assert.Equal(t, map[string]any{"by": 2, "label": "two"}, pb.Steps[0].Args)
	assert.Equal(t, 0, *pb.Steps[2].Position)
	assert.Nil(t, pb.Steps[2].CanUndo)
	assert.Equal(t, "demo", pb.ScriptName())
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"no steps", `name: x`},
		{"unknown field", "steps:\n  - op: undo\n    bogus: 1\n"},
		{"unknown op", "steps:\n  - op: jump\n"},
		{"missing op", "steps:\n  - action: a\n"},
		{"execute without action", "steps:\n  - op: execute\n"},
		{"undo with action", "steps:\n  - op: undo\n    action: a\n"},
		{"empty expect", "steps:\n  - op: expect\n"},
		{"expectation on execute", "steps:\n  - op: execute\n    action: a\n    size: 1\n"},
		{"error_contains alone", "steps:\n  - op: undo\n    error_contains: x\n"},
		{"both scripts", "script: x\nscript_file: y\nsteps:\n  - op: undo\n"},
		{"bad max_size", "max_size: 0\nsteps:\n  - op: undo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidPlaybook)
		})
	}
}

func TestLoadResolvesScriptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "actions.lua"), []byte("-- lua\n"), 0o644))
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("script_file: actions.lua\nsteps:\n  - op: undo\n"), 0o644))

	pb, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "-- lua\n", pb.Script)
	assert.Equal(t, filepath.Join(dir, "actions.lua"), pb.ScriptFile)
	assert.Equal(t, pb.ScriptFile, pb.ScriptName())
}

func TestLoadMissingScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("script_file: nope.lua\nsteps:\n  - op: undo\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
