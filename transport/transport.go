// Package transport defines the contracts this engine imposes on the
// parameter-store wire transport: the push/pull RPC surface the worker
// pipeline drives against the sharded parameter store, and the RPC framing
// envelope multiplexing every command exchanged between roles. Wire
// serialization itself is an external collaborator; this package only
// fixes the shape. Two implementations live alongside it: transport/local
// (in-process, the default) and transport/grpcts (networked).
package transport

import (
	"context"

	"github.com/asyncps/psengine/feaid"
)

// Role identifies which of the three logical roles sent a Frame.
type Role int

const (
	RoleScheduler Role = iota
	RoleWorker
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleScheduler:
		return "scheduler"
	case RoleWorker:
		return "worker"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// Cmd multiplexes every operation carried over a Frame, mirroring the
// original ps-lite Message's single cmd field rather than one RPC method
// per operation.
type Cmd int32

const (
	// CmdProcess assigns a workload.Partition to a worker (scheduler -> worker).
	CmdProcess Cmd = iota
	// CmdReportProgress carries a progress delta, and optionally a
	// partition-finished signal (worker -> scheduler).
	CmdReportProgress
	// CmdSaveModel broadcasts a save command to the server group
	// (scheduler -> server).
	CmdSaveModel
	// CmdPush carries gradients for a set of keys (worker -> server).
	CmdPush
	// CmdPull requests weights for a set of keys (worker -> server).
	CmdPull
	// CmdShutdown names a drain-and-exit request (scheduler -> worker |
	// server). Nothing in this repository sends it, and no frame handler
	// acts on it: the worker and scheduler handlers reject it as an
	// unsupported cmd, and a server treats it as an unsupported param cmd.
	CmdShutdown
)

// Frame is the RPC framing envelope: {role, sender, cmd, opaque_payload}.
type Frame struct {
	Role    Role
	Sender  string
	Cmd     Cmd
	Payload []byte
}

// Filter selects the wire batch options a push/pull call is made with:
// float quantization to a configurable byte width, key caching (skip
// resending an unchanged key vector between calls), and payload
// compression. FixedBytes == 0 disables quantization (full float32
// precision).
type Filter struct {
	FixedBytes int
	KeyCache   bool
	Compress   bool
}

// PushCallback is invoked when a Push RPC completes (or fails).
type PushCallback func(err error)

// PullCallback is invoked when a Pull RPC completes, with one value per
// requested key in matching order (missing keys return the handler's
// zero value).
type PullCallback func(values []float32, err error)

// ParamStore is the push/pull surface the worker pipeline drives against
// the sharded parameter store. Both operations are asynchronous: they
// enqueue and return immediately, delivering completion via the callback,
// so a pull/push call itself never blocks the caller.
type ParamStore interface {
	Push(keys []feaid.ID, values []float32, filter Filter, cb PushCallback)
	Pull(keys []feaid.ID, filter Filter, cb PullCallback)
}

// Handler answers a single Frame — the scheduler, worker, and server
// packages each register one to receive the commands addressed to them.
type Handler func(ctx context.Context, frame Frame) (Frame, error)

// Dispatcher sends a Frame to a named peer and waits for its reply. It is
// satisfied by both transport/local (direct in-process call) and
// transport/grpcts (networked unary RPC), so the scheduler/worker/server
// packages are written once against Dispatcher and are transport-agnostic.
type Dispatcher interface {
	Send(ctx context.Context, peer string, frame Frame) (Frame, error)
}

// Broadcaster sends a Frame to every member of a role group, used for the
// scheduler's "begin phase" and "save model" broadcasts.
type Broadcaster interface {
	Broadcast(ctx context.Context, role Role, frame Frame) []error
}
