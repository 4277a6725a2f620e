package playbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/actionhistory/internal/history"
)

// Factory builds the action named by an execute step.
type Factory func(name string, args map[string]any) (history.Action, error)

// StoreReader is the read side of the state that actions mutate.
type StoreReader interface {
	Get(key string) (any, bool)
}

// Runner drives a playbook against a history manager.
type Runner struct {
	manager *history.Manager
	factory Factory
	store   StoreReader
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStore enables store expectations.
func WithStore(store StoreReader) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

// WithLogger logs each step to logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a runner. factory builds the actions for execute steps.
func NewRunner(m *history.Manager, factory Factory, opts ...RunnerOption) *Runner {
	r := &Runner{
		manager: m,
		factory: factory,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int // 1-based
	Op       Op
	Action   string
	Err      error // error returned by the manager, if any
	Size     int   // history size after the step
	Position int   // history position after the step
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	ID       string
	Name     string
	Steps    []StepResult
	Duration time.Duration
	Stats    history.Stats
}

// Run applies the playbook's settings to the manager and executes its steps
// in order. The report covers every step attempted, including the one that
// failed.
func (r *Runner) Run(ctx context.Context, pb *Playbook) (*Report, error) {
	report := &Report{ID: uuid.NewString(), Name: pb.Name}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		report.Stats = r.manager.Stats()
	}()

	if pb.MaxSize != nil {
		r.manager.SetMaxHistorySize(*pb.MaxSize)
	}
	if pb.Strict != nil {
		r.manager.SetStrict(*pb.Strict)
	}

	logger := r.logger.With("playbook", pb.Name, "run", report.ID)
	logger.Info("playbook started", "steps", len(pb.Steps))

	for i, step := range pb.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := r.runStep(ctx, i+1, step)
		report.Steps = append(report.Steps, res)
		logger.Debug("step",
			"index", res.Index, "op", res.Op, "action", res.Action,
			"size", res.Size, "position", res.Position, "error", res.Err)
		if err != nil {
			logger.Warn("playbook stopped", "index", res.Index, "error", err)
			return report, &StepError{Index: i + 1, Op: step.Op, Err: err}
		}
	}

	logger.Info("playbook finished", "steps", len(report.Steps))
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, index int, step Step) (StepResult, error) {
	res := StepResult{Index: index, Op: step.Op, Action: step.Action}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	var opErr error
	switch step.Op {
	case OpExecute:
		if r.factory == nil {
			return res, errors.New("no action factory")
		}
		action, err := r.factory(step.Action, step.Args)
		if err != nil {
			return res, err
		}
		opErr = r.manager.Execute(ctx, action)
	case OpUndo:
		opErr = r.manager.Undo(ctx)
	case OpRedo:
		opErr = r.manager.Redo(ctx)
	case OpClear:
		opErr = r.manager.Clear()
	case OpExpect:
		err := r.check(step)
		res.Size, res.Position = r.manager.HistorySize(), r.manager.HistoryPosition()
		return res, err
	default:
		return res, fmt.Errorf("unknown op %q", step.Op)
	}

	res.Err = opErr
	res.Size, res.Position = r.manager.HistorySize(), r.manager.HistoryPosition()

	switch {
	case step.ExpectError && opErr == nil:
		return res, ErrUnexpectedSuccess
	case step.ExpectError && step.ErrorContains != "" && !strings.Contains(opErr.Error(), step.ErrorContains):
		return res, fmt.Errorf("error %q does not contain %q", opErr, step.ErrorContains)
	case !step.ExpectError && opErr != nil:
		return res, opErr
	}
	return res, nil
}

// check evaluates an expect step against the manager and store.
func (r *Runner) check(step Step) error {
	var errs []error
	if step.Size != nil {
		if got := r.manager.HistorySize(); got != *step.Size {
			errs = append(errs, fmt.Errorf("size: got %d, want %d", got, *step.Size))
		}
	}
	if step.Position != nil {
		if got := r.manager.HistoryPosition(); got != *step.Position {
			errs = append(errs, fmt.Errorf("position: got %d, want %d", got, *step.Position))
		}
	}
	if step.CanUndo != nil {
		if got := r.manager.CanUndo(); got != *step.CanUndo {
			errs = append(errs, fmt.Errorf("can_undo: got %t, want %t", got, *step.CanUndo))
		}
	}
	if step.CanRedo != nil {
		if got := r.manager.CanRedo(); got != *step.CanRedo {
			errs = append(errs, fmt.Errorf("can_redo: got %t, want %t", got, *step.CanRedo))
		}
	}

	if len(step.Store) > 0 {
		if r.store == nil {
			errs = append(errs, errors.New("store: no store configured"))
		} else {
			for _, key := range slices.Sorted(maps.Keys(step.Store)) {
				want := step.Store[key]
				got, ok := r.store.Get(key)
				switch {
				case want == nil && ok:
					errs = append(errs, fmt.Errorf("store %s: got %v, want unset", key, got))
				case want != nil && !ok:
					errs = append(errs, fmt.Errorf("store %s: unset, want %v", key, want))
				case want != nil && !sameValue(got, want):
					errs = append(errs, fmt.Errorf("store %s: got %v, want %v", key, got, want))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrExpectation, errors.Join(errs...))
	}
	return nil
}

// sameValue compares store values, treating all numeric kinds as float64.
func sameValue(got, want any) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		return gf == wf
	}
	return reflect.DeepEqual(got, want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
