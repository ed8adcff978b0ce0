package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/workload"
)

// Config carries the scheduler-facing training knobs.
type Config struct {
	MaxDataPass     int
	DispItv         time.Duration
	TrainData       []string
	ValData         []string
	NumPartsPerFile int
	PoolTimeout     time.Duration
}

// Scheduler drives the epoch state machine against a known, static set of
// worker peers, assigning partitions and merging their progress reports.
// It never touches model weights directly — the save step is a broadcast
// the server group acts on independently.
type Scheduler struct {
	Dispatch  transport.Dispatcher
	Broadcast transport.Broadcaster
	Workers   []string
	Cfg       Config

	monitor *progress.DistMonitor
}

// New creates a Scheduler ready to Run.
func New(dispatch transport.Dispatcher, broadcast transport.Broadcaster, workers []string, cfg Config) *Scheduler {
	return &Scheduler{Dispatch: dispatch, Broadcast: broadcast, Workers: workers, Cfg: cfg, monitor: progress.NewDistMonitor()}
}

// Merge folds a worker-reported progress delta for phase into the
// scheduler's running monitor, which displayLoop polls and clears on its
// own schedule. Safe to call concurrently from multiple workers.
func (s *Scheduler) Merge(phase progress.Phase, p progress.Progress) {
	s.monitor.Merge(phase, p)
}

// FrameHandler answers a worker's unsolicited CmdReportProgress frame by
// merging its delta into the scheduler's monitor — the receiving half of
// worker.ReportFunc, used when a worker reports progress mid-partition
// rather than only in its CmdProcess reply.
func (s *Scheduler) FrameHandler() transport.Handler {
	return func(_ context.Context, frame transport.Frame) (transport.Frame, error) {
		if frame.Cmd != transport.CmdReportProgress {
			return transport.Frame{}, fmt.Errorf("scheduler: unsupported cmd %v", frame.Cmd)
		}
		upd, err := decodeProgressUpdate(frame)
		if err != nil {
			return transport.Frame{}, err
		}
		s.Merge(upd.Phase, upd.Progress)
		return transport.Frame{Role: transport.RoleScheduler, Cmd: transport.CmdReportProgress}, nil
	}
}

// Run executes MaxDataPass epochs of Train (optionally followed by Val),
// then broadcasts a save command and waits for acknowledgement — the
// WaitReady→Train→(Val?)→NextEpoch, finally Save→Done state machine.
func (s *Scheduler) Run(ctx context.Context) error {
	for epoch := 0; epoch < s.Cfg.MaxDataPass; epoch++ {
		glog.Infof("scheduler: epoch %d: train phase starting", epoch)
		if err := s.runPhase(ctx, progress.Train, s.Cfg.TrainData); err != nil {
			return fmt.Errorf("scheduler: epoch %d train: %w", epoch, err)
		}
		if len(s.Cfg.ValData) > 0 {
			glog.Infof("scheduler: epoch %d: validation phase starting", epoch)
			if err := s.runPhase(ctx, progress.Val, s.Cfg.ValData); err != nil {
				return fmt.Errorf("scheduler: epoch %d validation: %w", epoch, err)
			}
		}
	}

	glog.Info("scheduler: broadcasting save command")
	if errs := s.Broadcast.Broadcast(ctx, transport.RoleServer, transport.Frame{Role: transport.RoleScheduler, Cmd: transport.CmdSaveModel}); len(errs) > 0 {
		return fmt.Errorf("scheduler: save broadcast failed: %v", errs)
	}
	glog.Info("scheduler: done")
	return nil
}

// runPhase loads the pool with phase's files, broadcasts a begin-phase
// signal to the worker group, then drives each worker's assignment loop
// concurrently until the pool is fully finished, printing progress every
// Cfg.DispItv.
func (s *Scheduler) runPhase(ctx context.Context, phase progress.Phase, files []string) error {
	pool := workload.New(s.Cfg.PoolTimeout)
	pool.Add(files, s.Cfg.NumPartsPerFile, phase)

	if errs := s.Broadcast.Broadcast(ctx, transport.RoleWorker, transport.Frame{Role: transport.RoleScheduler, Cmd: transport.CmdProcess}); len(errs) > 0 {
		glog.Warningf("scheduler: begin-phase broadcast had %d failures: %v", len(errs), errs)
	}

	stopDisp := make(chan struct{})
	var dispWg sync.WaitGroup
	dispWg.Add(1)
	go func() {
		defer dispWg.Done()
		s.displayLoop(phase, stopDisp)
	}()

	if s.Cfg.PoolTimeout > 0 {
		go s.sweepLoop(pool, stopDisp)
	}

	var wg sync.WaitGroup
	wg.Add(len(s.Workers))
	for _, w := range s.Workers {
		go func(worker string) {
			defer wg.Done()
			s.driveWorker(ctx, worker, pool, phase)
		}(w)
	}
	wg.Wait()
	close(stopDisp)
	dispWg.Wait()

	if !pool.IsFinished() {
		return fmt.Errorf("phase left partitions unresolved (worker failures exhausted retries)")
	}
	return nil
}

// driveWorker repeatedly assigns worker its next partition, polling while
// idle so it can pick up partitions reassigned from a dead or timed-out
// peer, until the whole pool — not just this worker's share — is
// finished. A transport failure stops driving this worker and returns its
// current assignment to the pool for another worker to pick up.
func (s *Scheduler) driveWorker(ctx context.Context, worker string, pool *workload.Pool, phase progress.Phase) {
	const pollInterval = 50 * time.Millisecond
	for !pool.IsFinished() {
		part, ok := pool.Get(worker)
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		req, err := encodeProcess(worker, part)
		if err != nil {
			glog.Errorf("scheduler: %v", err)
			return
		}
		reply, err := s.Dispatch.Send(ctx, worker, req)
		if err != nil {
			glog.Warningf("scheduler: worker %s unreachable, reassigning its partitions: %v", worker, err)
			pool.MarkDead(worker)
			return
		}
		rep, err := decodeProgressReply(reply)
		if err != nil {
			glog.Errorf("scheduler: %v", err)
			pool.MarkDead(worker)
			return
		}
		s.monitor.Merge(phase, rep.Progress)
		pool.Finish(worker, part.ID)
	}
}

// sweepLoop periodically returns timed-out assignments to unassigned
// until stop is closed.
func (s *Scheduler) sweepLoop(pool *workload.Pool, stop <-chan struct{}) {
	ticker := time.NewTicker(s.Cfg.PoolTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pool.Sweep()
		}
	}
}

// displayLoop pulls the merged progress from the monitor, clears it, and
// if non-empty prints one line every Cfg.DispItv seconds until stop is
// closed (then once more, to flush whatever accumulated since the last
// tick) — AsyncSGDScheduler::Run's sleep(disp_itv)/monitor_.Get/Clear loop.
// total tracks the running cumulative count across ticks for PrintStr's
// "ttl #ex" column; display ratios are computed at print time.
func (s *Scheduler) displayLoop(phase progress.Phase, stop <-chan struct{}) {
	itv := s.Cfg.DispItv
	if itv <= 0 {
		itv = time.Second
	}
	ticker := time.NewTicker(itv)
	defer ticker.Stop()

	var total progress.Progress
	printedHeader := false
	flush := func() {
		delta := s.monitor.Get(phase)
		s.monitor.Clear(phase)
		if delta.Empty() {
			return
		}
		if !printedHeader {
			glog.Info(progress.HeadStr())
			printedHeader = true
		}
		glog.Info(delta.PrintStr(total))
		total.Merge(delta)
	}

	for {
		select {
		case <-stop:
			flush()
			return
		case <-ticker.C:
			flush()
		}
	}
}

