package progress

import (
	"sync"
	"time"
)

// Phase distinguishes the train and validation progress streams, which the
// scheduler tracks and clears independently.
type Phase int

const (
	Train Phase = iota
	Val
)

// WorkerMonitor accumulates a single worker's loss/AUC contributions across
// minibatches between flushes. It is written to from the pipeline's
// pull-continuation goroutine and read from the TimeReporter's flush
// goroutine, so access is guarded by a mutex.
type WorkerMonitor struct {
	mu   sync.Mutex
	acc  Progress
}

// Add merges a single minibatch's contribution into the running snapshot.
func (m *WorkerMonitor) Add(p Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acc.Merge(p)
}

// Snapshot returns and clears the current accumulation.
func (m *WorkerMonitor) Snapshot() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.acc
	m.acc = Progress{}
	return snap
}

// TimeReporter flushes a WorkerMonitor's current snapshot through a Send
// function at a bounded rate (by default, no more than once a second), so
// a worker's progress reports don't flood the transport.
type TimeReporter struct {
	monitor  *WorkerMonitor
	send     func(Progress)
	minItv   time.Duration
	lastSend time.Time
	mu       sync.Mutex
}

// NewTimeReporter creates a reporter that flushes monitor's contents via
// send no more often than minItv.
func NewTimeReporter(monitor *WorkerMonitor, send func(Progress), minItv time.Duration) *TimeReporter {
	if minItv <= 0 {
		minItv = time.Second
	}
	return &TimeReporter{monitor: monitor, send: send, minItv: minItv, lastSend: time.Now()}
}

// MaybeFlush sends the monitor's current snapshot if at least minItv has
// elapsed since the previous flush (or, before the first flush, since the
// reporter was created), or if force is set (used at end of
// partition, where the remaining progress must be sent regardless of rate).
func (r *TimeReporter) MaybeFlush(force bool) {
	r.mu.Lock()
	due := force || time.Since(r.lastSend) >= r.minItv
	if !due {
		r.mu.Unlock()
		return
	}
	r.lastSend = time.Now()
	r.mu.Unlock()

	snap := r.monitor.Snapshot()
	if !snap.Empty() {
		r.send(snap)
	}
}

// DistMonitor is the merge point for all workers' reported progress,
// polled and cleared by the scheduler.
type DistMonitor struct {
	mu   sync.Mutex
	byPh map[Phase]*Progress
}

// NewDistMonitor creates an empty distributed monitor.
func NewDistMonitor() *DistMonitor {
	return &DistMonitor{byPh: map[Phase]*Progress{Train: {}, Val: {}}}
}

// Merge folds a worker's reported progress for the given phase into the
// running total.
func (d *DistMonitor) Merge(phase Phase, p Progress) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byPh[phase].Merge(p)
}

// Get returns the current accumulated progress for the given phase.
func (d *DistMonitor) Get(phase Phase) Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.byPh[phase]
}

// Clear resets the accumulated progress for the given phase to the identity
// element.
func (d *DistMonitor) Clear(phase Phase) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byPh[phase] = &Progress{}
}
