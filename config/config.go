// Package config parses the process's command-line flags into the
// scheduler/worker/server packages' own Config types, using a flag.FlagSet
// per binary rather than a configuration-file parser.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/asyncps/psengine/scheduler"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/worker"
)

// Config is the flat set of flags every role's binary accepts; each role
// reads only the fields relevant to it.
type Config struct {
	Role string // "scheduler", "worker", or "server"

	Algo      string
	LrEta     float64
	LrBeta    float64
	LambdaL1  float64
	LambdaL2  float64
	Minibatch int
	MaxDelay  int
	NumThreads int

	MaxDataPass     int
	DispItv         time.Duration
	TrainData       string // comma-separated file list
	ValData         string
	DataFormat      string
	NumPartsPerFile int
	UseWorkerLocalData bool

	FixedBytes     int
	KeyCache       bool
	MsgCompression bool

	Addr      string   // this process's listen address (grpc transport, every role)
	Peer      string   // this process's registered peer name
	Workers   string   // comma-separated worker peer names (scheduler role)
	WorkerAddrs string // comma-separated worker_name=addr pairs (scheduler/grpcts)
	ServerAddrs string // comma-separated server_name=addr pairs (worker/grpcts)
	SchedulerAddr string // scheduler's listen address, for the worker's async progress pushes (grpcts)
	NumShards   int
	KeySpace    uint64 // upper bound (exclusive) of the global feature ID space

	Transport string // "local" or "grpc"
	ModelPath string
}

// Parse registers every role's command-line flag against fs and parses
// args, returning the populated Config. fs is normally flag.CommandLine;
// tests pass a scratch FlagSet.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var c Config
	fs.StringVar(&c.Role, "role", "", "process role: scheduler, worker, or server")

	fs.StringVar(&c.Algo, "algo", "sgd", "server update handler: sgd, adagrad, or ftrl")
	fs.Float64Var(&c.LrEta, "lr_eta", 1, "learning-rate alpha")
	fs.Float64Var(&c.LrBeta, "lr_beta", 1, "learning-rate beta")
	fs.Float64Var(&c.LambdaL1, "lambda_l1", 0, "L1 proximal penalty")
	fs.Float64Var(&c.LambdaL2, "lambda_l2", 0, "L2 proximal penalty")
	fs.IntVar(&c.Minibatch, "minibatch", 1000, "train minibatch size")
	fs.IntVar(&c.MaxDelay, "max_delay", 4, "bounded-staleness window (train only)")
	fs.IntVar(&c.NumThreads, "num_threads", 1, "loss evaluate/gradient parallelism per worker")

	fs.IntVar(&c.MaxDataPass, "max_data_pass", 1, "number of epochs")
	fs.DurationVar(&c.DispItv, "disp_itv", 10*time.Second, "scheduler display interval")
	fs.StringVar(&c.TrainData, "train_data", "", "comma-separated train file list")
	fs.StringVar(&c.ValData, "val_data", "", "comma-separated validation file list")
	fs.StringVar(&c.DataFormat, "data_format", "libsvm", "partition file format")
	fs.IntVar(&c.NumPartsPerFile, "num_parts_per_file", 1, "partitions enumerated per file")
	fs.BoolVar(&c.UseWorkerLocalData, "use_worker_local_data", false, "resolve partitions locally on the worker instead of by scheduler-assigned path")

	fs.IntVar(&c.FixedBytes, "fixed_bytes", 0, "float quantization width for push/pull (0 disables)")
	fs.BoolVar(&c.KeyCache, "key_cache", false, "enable transport key caching")
	fs.BoolVar(&c.MsgCompression, "msg_compression", false, "enable transport compression")

	fs.StringVar(&c.Addr, "addr", ":0", "this process's listen address")
	fs.StringVar(&c.Peer, "peer", "", "this process's registered peer name")
	fs.StringVar(&c.Workers, "workers", "", "comma-separated worker peer names (scheduler role)")
	fs.StringVar(&c.WorkerAddrs, "worker_addrs", "", "comma-separated name=addr pairs for worker peers")
	fs.StringVar(&c.ServerAddrs, "server_addrs", "", "comma-separated name=addr pairs for server peers")
	fs.StringVar(&c.SchedulerAddr, "scheduler_addr", "", "scheduler's listen address, for async progress reports (worker role, grpc transport)")
	fs.IntVar(&c.NumShards, "num_shards", 1, "number of parameter server shards")
	fs.Uint64Var(&c.KeySpace, "key_space", 1<<32, "exclusive upper bound of the global feature ID space")

	fs.StringVar(&c.Transport, "transport", "local", "parameter store transport: local or grpc")
	fs.StringVar(&c.ModelPath, "model_path", "model.psmodel1", "model save path")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if c.Role != "scheduler" && c.Role != "worker" && c.Role != "server" {
		return Config{}, fmt.Errorf("config: -role must be scheduler, worker, or server, got %q", c.Role)
	}
	return c, nil
}

// Files splits a comma-separated flag value into its file list, dropping
// empty entries so an empty flag yields a nil slice rather than [""].
func Files(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(csv, ",") {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// NamedAddrs splits a "name=addr,name=addr" flag value into a map.
func NamedAddrs(csv string) (map[string]string, error) {
	out := make(map[string]string)
	if csv == "" {
		return out, nil
	}
	for _, pair := range strings.Split(csv, ",") {
		name, addr, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("config: malformed name=addr pair %q", pair)
		}
		out[name] = addr
	}
	return out, nil
}

// ServerConfig derives the server package's per-shard Config.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		Algo:    strings.ToLower(c.Algo),
		Alpha:   float32(c.LrEta),
		Beta:    float32(c.LrBeta),
		Lambda1: float32(c.LambdaL1),
		Lambda2: float32(c.LambdaL2),
	}
}

// WorkerConfig derives the worker package's pipeline Config.
func (c Config) WorkerConfig() worker.Config {
	return worker.Config{
		Minibatch: c.Minibatch,
		MaxDelay:  c.MaxDelay,
		Threads:   c.NumThreads,
		Filter:    c.Filter(),

		UseLocalData: c.UseWorkerLocalData,
		TrainFiles:   Files(c.TrainData),
		ValFiles:     Files(c.ValData),
	}
}

// SchedulerConfig derives the scheduler package's Config.
func (c Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		MaxDataPass:     c.MaxDataPass,
		DispItv:         c.DispItv,
		TrainData:       Files(c.TrainData),
		ValData:         Files(c.ValData),
		NumPartsPerFile: c.NumPartsPerFile,
		PoolTimeout:     0,
	}
}

// Filter derives the transport batch options a push/pull call should use.
func (c Config) Filter() transport.Filter {
	return transport.Filter{FixedBytes: c.FixedBytes, KeyCache: c.KeyCache, Compress: c.MsgCompression}
}
