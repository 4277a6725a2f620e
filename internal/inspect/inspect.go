package inspect

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/actionhistory/internal/history"
)

// Entry states reported in a snapshot.
const (
	StateUndoable = "undoable"
	StateRedoable = "redoable"
)

// ErrInvalidDocument is returned by Query when doc is not valid JSON.
var ErrInvalidDocument = errors.New("invalid JSON document")

// Snapshot renders state, and optionally the contents of a store, as JSON.
//
// The document has the fields size, position, max_size, busy, can_undo,
// can_redo, entries and store. Position is the 1-based history position
// (0 when nothing can be undone).
func Snapshot(state history.State, store map[string]any) ([]byte, error) {
	doc := []byte(`{}`)
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, path, value)
	}
	setRaw := func(path, raw string) {
		if err != nil {
			return
		}
		doc, err = sjson.SetRawBytes(doc, path, []byte(raw))
	}

	set("size", len(state.Entries))
	set("position", state.Position+1)
	set("max_size", state.MaxSize)
	set("busy", state.Busy)
	set("can_undo", state.CanUndo())
	set("can_redo", state.CanRedo())

	setRaw("entries", `[]`)
	for i, e := range state.Entries {
		if err != nil {
			break
		}
		var raw []byte
		raw, err = entryJSON(i, e, i <= state.Position)
		setRaw("entries.-1", string(raw))
	}

	if store != nil {
		setRaw("store", `{}`)
		for _, k := range slices.Sorted(maps.Keys(store)) {
			set("store."+escapeKey(k), store[k])
		}
	}

	if err != nil {
		return nil, fmt.Errorf("building snapshot: %w", err)
	}
	return doc, nil
}

// Query evaluates a gjson path against doc. It reports false when the path
// matches nothing.
func Query(doc []byte, path string) (gjson.Result, bool, error) {
	if !gjson.ValidBytes(doc) {
		return gjson.Result{}, false, ErrInvalidDocument
	}
	res := gjson.GetBytes(doc, path)
	return res, res.Exists(), nil
}

// Pretty reformats doc with indentation for display.
func Pretty(doc []byte) []byte {
	return []byte(gjson.GetBytes(doc, "@pretty").Raw)
}

type field struct {
	path  string
	value any
}

// entryJSON renders one history entry. index is 0-based.
func entryJSON(index int, e history.Entry, undoable bool) ([]byte, error) {
	state := StateRedoable
	if undoable {
		state = StateUndoable
	}

	raw := []byte(`{}`)
	fields := []field{
		{"index", index + 1},
		{"id", e.ID()},
		{"description", e.Description()},
		{"timestamp", e.Timestamp.UTC().Format(time.RFC3339Nano)},
		{"state", state},
	}
	if data := e.Data(); data != nil {
		fields = append(fields, field{"data", data})
	}

	var err error
	for _, f := range fields {
		if raw, err = sjson.SetBytes(raw, f.path, f.value); err != nil {
			return nil, fmt.Errorf("entry %d %s: %w", index+1, f.path, err)
		}
	}
	return raw, nil
}

// escapeKey escapes characters that have meaning in a path component.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
