package history

import (
	"context"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	opExec = iota
	opUndo
	opRedo
	opClear
)

// model is a straightforward reference implementation of the history rules.
type model struct {
	entries  []string
	position int
	max      int
}

func (md *model) apply(op int, id string) {
	switch op {
	case opExec:
		md.entries = append(append([]string{}, md.entries[:md.position+1]...), id)
		if len(md.entries) > md.max {
			md.entries = md.entries[len(md.entries)-md.max:]
		}
		md.position = len(md.entries) - 1
	case opUndo:
		if md.position >= 0 {
			md.position--
		}
	case opRedo:
		if md.position < len(md.entries)-1 {
			md.position++
		}
	case opClear:
		md.entries = nil
		md.position = -1
	}
}

func TestHistoryMatchesModel_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("manager agrees with the reference model", prop.ForAll(
		func(ops []int, max int) bool {
			ctx := context.Background()
			m := New(WithMaxHistorySize(max))
			md := &model{position: -1, max: max}
			rec := &recorder{}

			for i, op := range ops {
				id := strconv.Itoa(i)
				switch op {
				case opExec:
					if err := m.Execute(ctx, rec.action(id)); err != nil {
						return false
					}
				case opUndo:
					if err := m.Undo(ctx); err != nil {
						return false
					}
				case opRedo:
					if err := m.Redo(ctx); err != nil {
						return false
					}
				case opClear:
					if err := m.Clear(); err != nil {
						return false
					}
				}
				md.apply(op, id)

				if !equalIDs(m.History(), md.entries...) {
					t.Logf("step %d: history %v, model %v", i, ids(m.History()), md.entries)
					return false
				}
				if m.HistoryPosition() != md.position+1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(opExec, opClear)),
		gen.IntRange(1, 6),
	))

	properties.Property("size and cursor stay in range", prop.ForAll(
		func(ops []int, max int) bool {
			ctx := context.Background()
			m := New(WithMaxHistorySize(max))
			rec := &recorder{}

			for i, op := range ops {
				switch op {
				case opExec:
					_ = m.Execute(ctx, rec.action(strconv.Itoa(i)))
				case opUndo:
					_ = m.Undo(ctx)
				case opRedo:
					_ = m.Redo(ctx)
				case opClear:
					_ = m.Clear()
				}

				size, pos := m.HistorySize(), m.HistoryPosition()
				if size < 0 || size > max || pos < 0 || pos > size {
					return false
				}
				if m.CanUndo() != (pos > 0) || m.CanRedo() != (pos < size) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(opExec, opClear)),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
