// Package worker implements the worker pipeline: the
// read → localize → pull → evaluate/gradient → push minibatch loop,
// regulated by the bounded-staleness Gate. Grounded on
// original_source/learn/linear-new/async_sgd.h's AsgdWorker::ProcessMinibatch
// continuation chain, translated from callback lambdas into two linked
// goroutines per minibatch.
package worker

import (
	"fmt"
	"time"

	"github.com/asyncps/psengine/loss"
	"github.com/asyncps/psengine/minibatch"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/reader"
	"github.com/asyncps/psengine/transport"
)

// Config carries the per-phase sizing and staleness knobs, plus the
// transport batch options and local-data resolution settings a worker
// process is configured with.
type Config struct {
	Minibatch int // train minibatch size
	MaxDelay  int // train bounded-staleness window
	Threads   int // loss Evaluate/CalcGrad parallelism
	Filter    transport.Filter

	UseLocalData bool     // resolve partitions against TrainFiles/ValFiles instead of the scheduler's FilePath
	TrainFiles   []string // this worker's own copy of the train file list, indexed like the scheduler's
	ValFiles     []string // this worker's own copy of the validation file list
}

// MinibatchSize returns the reader batch size for phase: the configured
// train size, or validation's max(10*minibatch, 100000).
func (c Config) MinibatchSize(phase progress.Phase) int {
	if phase != progress.Val {
		return c.Minibatch
	}
	v := 10 * c.Minibatch
	if v < 100000 {
		v = 100000
	}
	return v
}

// Pipeline drives one worker's minibatch loop against a parameter store.
// Report, if non-nil, receives a rate-limited progress delta mid-partition
// (through a TimeReporter), so a scheduler polling the aggregate monitor
// sees a live stream instead of one lump sum at partition end.
type Pipeline struct {
	Store   transport.ParamStore
	Monitor *progress.WorkerMonitor
	NewLoss func() loss.Interface
	Config  Config
	Report  func(progress.Phase, progress.Progress)
}

// Process runs rd to exhaustion under phase's sizing and staleness rules,
// returning an error only on a non-recoverable reader or transport
// failure. Per-minibatch progress is fed to p.Monitor as it completes and,
// if p.Report is set, flushed through a TimeReporter at a bounded rate
// plus once more after rd drains. When p.Report is nil, callers read the
// accumulated total back out of Monitor once Process returns; when it is
// set, that final flush leaves Monitor empty.
func (p *Pipeline) Process(rd reader.Interface, phase progress.Phase) error {
	maxDelay := p.Config.MaxDelay
	if phase == progress.Val {
		maxDelay = 0 // unbounded: validation never pushes, so there is nothing to stall on
	}
	gate := NewGate(maxDelay)

	var reporter *progress.TimeReporter
	if p.Report != nil {
		reporter = progress.NewTimeReporter(p.Monitor, func(pr progress.Progress) { p.Report(phase, pr) }, time.Second)
	}

	var firstErr error
	for rd.Next() {
		mb := rd.Value()
		lmb := minibatch.Localize(mb)

		// Claim an in-flight slot before dispatching the pull: the local
		// and grpcts transports may run the completion callback on another
		// goroutine immediately, which would race with Acquire if it ran
		// first — ours can, since neither transport guarantees the pull
		// call returns before its callback fires, so we claim first.
		gate.Acquire()

		weights := make([]float32, len(lmb.FeaID))
		p.Store.Pull(lmb.FeaID, p.Config.Filter, func(values []float32, err error) {
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("worker: pull: %w", err)
				}
				gate.Release()
				return
			}
			copy(weights, values)
			p.runMinibatch(lmb, weights, phase, gate, reporter)
		})
	}
	if err := rd.Err(); err != nil {
		return fmt.Errorf("worker: reader: %w", err)
	}

	gate.DrainWait()
	if reporter != nil {
		reporter.MaybeFlush(true)
	}
	return firstErr
}

// runMinibatch is the pull continuation: evaluate the loss, report
// progress, and — in train phase — compute and push gradients. Always
// ends by releasing the gate (push completion for train, immediately for
// validation).
func (p *Pipeline) runMinibatch(lmb minibatch.LocalizedMinibatch, weights []float32, phase progress.Phase, gate *Gate, reporter *progress.TimeReporter) {
	l := p.NewLoss()
	l.Init(lmb.Rows, weights, p.Config.Threads)

	var prog progress.Progress
	l.Evaluate(&prog)
	p.Monitor.Add(prog)
	if reporter != nil {
		reporter.MaybeFlush(false)
	}

	if phase != progress.Train {
		gate.Release()
		return
	}

	l.CalcGrad() // overwrites weights in place with gradients
	p.Store.Push(lmb.FeaID, weights, p.Config.Filter, func(error) {
		gate.Release()
	})
}
