package app

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/actionhistory/internal/history"
)

// Metrics tracks how long action closures take, per phase.
type Metrics struct {
	mu     sync.RWMutex
	phases map[string]*phaseMetrics

	startTime time.Time
}

// phaseMetrics accumulates timings for one phase (execute or undo).
type phaseMetrics struct {
	count    atomic.Uint64
	failures atomic.Uint64
	totalNs  atomic.Int64
	minNs    atomic.Int64
	maxNs    atomic.Int64
}

func newPhaseMetrics() *phaseMetrics {
	p := &phaseMetrics{}
	// Initialize min to max int64 so first sample will be smaller
	p.minNs.Store(1<<63 - 1)
	return p
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		phases:    make(map[string]*phaseMetrics),
		startTime: time.Now(),
	}
}

func (m *Metrics) phase(name string) *phaseMetrics {
	m.mu.RLock()
	p, ok := m.phases[name]
	m.mu.RUnlock()
	if ok {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok = m.phases[name]; !ok {
		p = newPhaseMetrics()
		m.phases[name] = p
	}
	return p
}

// Record records one closure run.
func (m *Metrics) Record(phase string, duration time.Duration, err error) {
	p := m.phase(phase)
	ns := duration.Nanoseconds()

	p.count.Add(1)
	p.totalNs.Add(ns)
	if err != nil {
		p.failures.Add(1)
	}

	// Update min (atomic compare-and-swap loop)
	for {
		old := p.minNs.Load()
		if ns >= old || p.minNs.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (atomic compare-and-swap loop)
	for {
		old := p.maxNs.Load()
		if ns <= old || p.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// PhaseSnapshot is a point-in-time view of one phase.
type PhaseSnapshot struct {
	Count    uint64
	Failures uint64
	Avg      time.Duration
	Min      time.Duration
	Max      time.Duration
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime time.Duration
	Phases map[string]PhaseSnapshot
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Uptime: time.Since(m.startTime),
		Phases: make(map[string]PhaseSnapshot, len(m.phases)),
	}
	for name, p := range m.phases {
		count := p.count.Load()
		ps := PhaseSnapshot{
			Count:    count,
			Failures: p.failures.Load(),
			Max:      time.Duration(p.maxNs.Load()),
		}
		if count > 0 {
			ps.Avg = time.Duration(p.totalNs.Load() / int64(count))
			ps.Min = time.Duration(p.minNs.Load())
		}
		snap.Phases[name] = ps
	}
	return snap
}

// PhaseNames returns the recorded phases in sorted order.
func (s MetricsSnapshot) PhaseNames() []string {
	return slices.Sorted(maps.Keys(s.Phases))
}

// FailureRate returns the percentage of failed runs for a phase.
func (s PhaseSnapshot) FailureRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Count) * 100
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = make(map[string]*phaseMetrics)
	m.startTime = time.Now()
}

// Instrument wraps action so that its closures are timed into m. The
// wrapper keeps the action's id, description and data.
func (m *Metrics) Instrument(action history.Action) history.Action {
	return &timedAction{Action: action, metrics: m}
}

type timedAction struct {
	history.Action
	metrics *Metrics
}

func (a *timedAction) Execute(ctx context.Context) error {
	start := time.Now()
	err := a.Action.Execute(ctx)
	a.metrics.Record(history.OpExecute, time.Since(start), err)
	return err
}

func (a *timedAction) Undo(ctx context.Context) error {
	start := time.Now()
	err := a.Action.Undo(ctx)
	a.metrics.Record(history.OpUndo, time.Since(start), err)
	return err
}

func (a *timedAction) Data() any {
	if p, ok := a.Action.(history.Payload); ok {
		return p.Data()
	}
	return nil
}

func (a *timedAction) Validate() error {
	if v, ok := a.Action.(history.Validator); ok {
		return v.Validate()
	}
	return nil
}

// Metrics returns the application's metrics.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}
