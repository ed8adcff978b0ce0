// Package main bootstraps one role of the parameter-server training
// engine: scheduler, worker, or server, selected by -role. With
// -transport=local (the default) a single process plays every role
// in-process over direct Go calls — the runnable single-binary demo; with
// -transport=grpc each role dials out to the others over the network.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"

	"github.com/asyncps/psengine/config"
	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/loss"
	"github.com/asyncps/psengine/model"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/scheduler"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/transport/grpcts"
	"github.com/asyncps/psengine/transport/local"
	"github.com/asyncps/psengine/worker"
)

func main() {
	cfg, err := config.Parse(flag.NewFlagSet("psengine", flag.ExitOnError), os.Args[1:])
	if err != nil {
		glog.Fatalf("config: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", progress.Handler())
	go func() {
		glog.Fatal(http.ListenAndServe(":9090", mux))
	}()

	if cfg.Transport == "local" {
		if err := runLocalDemo(cfg); err != nil {
			glog.Fatalf("local demo: %v", err)
		}
		return
	}

	if err := runGRPC(cfg); err != nil {
		glog.Fatalf("%s: %v", cfg.Role, err)
	}
}

// newShards partitions [0, cfg.KeySpace) into cfg.NumShards contiguous,
// equal-width server.Service shards, all running cfg.Algo.
func newShards(cfg config.Config) ([]server.Service, error) {
	n := cfg.NumShards
	if n < 1 {
		n = 1
	}
	width := cfg.KeySpace / uint64(n)
	shards := make([]server.Service, n)
	for i := 0; i < n; i++ {
		low := feaid.ID(uint64(i) * width)
		high := feaid.ID(cfg.KeySpace)
		if i < n-1 {
			high = feaid.ID(uint64(i+1) * width)
		}
		shard, err := server.New(low, high, cfg.ServerConfig())
		if err != nil {
			return nil, err
		}
		shards[i] = shard
	}
	return shards, nil
}

// saveHandler answers a CmdSaveModel frame by dumping shards to
// cfg.ModelPath, the server role's half of the scheduler's save broadcast.
func saveHandler(cfg config.Config, shards []server.Service) transport.Handler {
	return func(_ context.Context, frame transport.Frame) (transport.Frame, error) {
		if frame.Cmd != transport.CmdSaveModel {
			return transport.Frame{}, fmt.Errorf("server: unsupported cmd %v", frame.Cmd)
		}
		glog.Infof("server: saving model to %s", cfg.ModelPath)
		if err := model.Save(cfg.ModelPath, strings.ToLower(cfg.Algo), shards); err != nil {
			return transport.Frame{}, err
		}
		return transport.Frame{Role: transport.RoleServer, Cmd: transport.CmdSaveModel}, nil
	}
}

// runLocalDemo runs the scheduler, every configured worker, and the
// parameter server shards in this one process, talking over
// transport/local's direct-call Dispatcher/Broadcaster and ParamStore.
func runLocalDemo(cfg config.Config) error {
	shards, err := newShards(cfg)
	if err != nil {
		return err
	}
	store := local.NewStore(shards, nil)

	registry := local.NewRegistry()
	registry.Register("server", transport.RoleServer, saveHandler(cfg, shards))

	workerNames := config.Files(cfg.Workers)
	if len(workerNames) == 0 {
		workerNames = []string{"worker0"}
	}

	sched := scheduler.New(registry, registry, workerNames, cfg.SchedulerConfig())
	registry.Register("scheduler", transport.RoleScheduler, sched.FrameHandler())

	for _, name := range workerNames {
		handler := &worker.Handler{
			Pipeline: &worker.Pipeline{
				Store:   store,
				Monitor: &progress.WorkerMonitor{},
				NewLoss: func() loss.Interface { return loss.NewLogistic() },
				Config:  cfg.WorkerConfig(),
				Report:  worker.ReportFunc(registry, name, "scheduler"),
			},
			DataFormat: cfg.DataFormat,
		}
		registry.Register(name, transport.RoleWorker, worker.FrameHandler(handler))
	}

	return sched.Run(context.Background())
}

// runGRPC runs this process's single role (scheduler, worker, or server)
// over the networked transport. The worker role talks to exactly one
// server peer per -role invocation, while the scheduler drives every
// worker named in -worker_addrs; running a
// multi-shard, multi-process server deployment additionally requires a
// worker-side key-range router analogous to transport/local.Store, which
// is out of scope for this bootstrap (see DESIGN.md).
func runGRPC(cfg config.Config) error {
	switch cfg.Role {
	case "scheduler":
		return runSchedulerGRPC(cfg)
	case "worker":
		return runWorkerGRPC(cfg)
	case "server":
		return runServerGRPC(cfg)
	default:
		return fmt.Errorf("unknown role %q", cfg.Role)
	}
}

func runSchedulerGRPC(cfg config.Config) error {
	workerAddrs, err := config.NamedAddrs(cfg.WorkerAddrs)
	if err != nil {
		return err
	}
	serverAddrs, err := config.NamedAddrs(cfg.ServerAddrs)
	if err != nil {
		return err
	}

	dialer := grpcts.NewDialer()
	defer dialer.Close()

	var workerNames []string
	for name, addr := range workerAddrs {
		dialer.Register(name, addr, transport.RoleWorker)
		workerNames = append(workerNames, name)
	}
	for name, addr := range serverAddrs {
		dialer.Register(name, addr, transport.RoleServer)
	}
	if len(workerNames) == 0 {
		return fmt.Errorf("scheduler: -worker_addrs must name at least one worker")
	}

	if cfg.Addr == "" {
		return fmt.Errorf("scheduler: -addr is required to receive worker progress reports")
	}
	sched := scheduler.New(dialer, dialer, workerNames, cfg.SchedulerConfig())

	srv := grpcts.NewServer(sched.FrameHandler())
	lisErr := make(chan error, 1)
	go func() { lisErr <- srv.Serve(cfg.Addr) }()

	err = sched.Run(context.Background())
	srv.Stop()
	if serveErr := <-lisErr; serveErr != nil && err == nil {
		return fmt.Errorf("scheduler: progress-report server: %w", serveErr)
	}
	return err
}

func runWorkerGRPC(cfg config.Config) error {
	if cfg.Peer == "" {
		return fmt.Errorf("worker: -peer is required")
	}
	serverAddrs, err := config.NamedAddrs(cfg.ServerAddrs)
	if err != nil {
		return err
	}
	if len(serverAddrs) != 1 {
		return fmt.Errorf("worker: -server_addrs must name exactly one server peer (got %d)", len(serverAddrs))
	}
	var serverPeer string
	for name := range serverAddrs {
		serverPeer = name
	}

	dialer := grpcts.NewDialer()
	defer dialer.Close()
	for name, addr := range serverAddrs {
		dialer.Register(name, addr, transport.RoleServer)
	}

	var report func(progress.Phase, progress.Progress)
	if cfg.SchedulerAddr != "" {
		dialer.Register("scheduler", cfg.SchedulerAddr, transport.RoleScheduler)
		report = worker.ReportFunc(dialer, cfg.Peer, "scheduler")
	}

	handler := &worker.Handler{
		Pipeline: &worker.Pipeline{
			Store:   grpcts.NewRemoteStore(dialer, serverPeer, cfg.Peer),
			Monitor: &progress.WorkerMonitor{},
			NewLoss: func() loss.Interface { return loss.NewLogistic() },
			Config:  cfg.WorkerConfig(),
			Report:  report,
		},
		DataFormat: cfg.DataFormat,
	}

	srv := grpcts.NewServer(worker.FrameHandler(handler))
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	srv.StopOnSignal(done)
	return srv.Serve(cfg.Addr)
}

func runServerGRPC(cfg config.Config) error {
	shards, err := newShards(cfg)
	if err != nil {
		return err
	}
	store := local.NewStore(shards, nil)
	paramHandler := grpcts.ServerParamHandler(store, grpcts.NewKeyCache())
	save := saveHandler(cfg, shards)

	handler := func(ctx context.Context, frame transport.Frame) (transport.Frame, error) {
		if frame.Cmd == transport.CmdSaveModel {
			return save(ctx, frame)
		}
		return paramHandler(ctx, frame)
	}

	srv := grpcts.NewServer(handler)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	srv.StopOnSignal(done)
	return srv.Serve(cfg.Addr)
}

