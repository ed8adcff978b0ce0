package worker

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/golang/glog"

	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/workload"
)

// progressReply mirrors scheduler's progressReport field-for-field: gob
// matches by field name, not by package-qualified type, so the two ends
// need not share the identifier, only the wire shape.
type progressReply struct {
	PartitionID int
	Progress    progress.Progress
}

// progressUpdate mirrors scheduler's progressUpdate field-for-field, the
// same way progressReply mirrors progressReport: an unsolicited progress
// delta sent mid-partition, independent of any CmdProcess reply.
type progressUpdate struct {
	Phase    progress.Phase
	Progress progress.Progress
}

// ReportFunc builds the function a Pipeline calls to flush interim
// progress: it encodes a CmdReportProgress frame and dispatches it to
// schedulerPeer over dispatch, logging (not failing) on a delivery error.
// A dropped update is not retried, and its progress is not carried in the
// partition's final reply either: the TimeReporter has already cleared it
// from the worker's monitor.
func ReportFunc(dispatch transport.Dispatcher, sender, schedulerPeer string) func(progress.Phase, progress.Progress) {
	return func(phase progress.Phase, prog progress.Progress) {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(progressUpdate{Phase: phase, Progress: prog}); err != nil {
			glog.Errorf("worker: encode progress update: %v", err)
			return
		}
		frame := transport.Frame{Role: transport.RoleWorker, Sender: sender, Cmd: transport.CmdReportProgress, Payload: buf.Bytes()}
		if _, err := dispatch.Send(context.Background(), schedulerPeer, frame); err != nil {
			glog.Warningf("worker: report progress to %s: %v", schedulerPeer, err)
		}
	}
}

// FrameHandler answers a scheduler's CmdProcess frame by running it
// through h and replying with the partition's accumulated progress,
// tagged with the partition ID the scheduler sent, wrapping h's open/run/
// close/reply cycle for the transport.Handler contract.
func FrameHandler(h *Handler) transport.Handler {
	return func(_ context.Context, frame transport.Frame) (transport.Frame, error) {
		if frame.Cmd != transport.CmdProcess {
			return transport.Frame{}, fmt.Errorf("worker: unsupported cmd %v", frame.Cmd)
		}
		if len(frame.Payload) == 0 {
			// The scheduler's begin-phase broadcast: a CmdProcess frame with
			// no partition attached. Acknowledge it without running anything.
			return transport.Frame{Role: transport.RoleWorker, Cmd: transport.CmdProcess}, nil
		}
		var part workload.Partition
		if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&part); err != nil {
			return transport.Frame{}, fmt.Errorf("worker: decode partition: %w", err)
		}

		prog, err := h.HandleProcess(part)
		if err != nil {
			return transport.Frame{}, fmt.Errorf("worker: %w", err)
		}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(progressReply{PartitionID: part.ID, Progress: prog}); err != nil {
			return transport.Frame{}, fmt.Errorf("worker: encode progress reply: %w", err)
		}
		return transport.Frame{Role: transport.RoleWorker, Cmd: transport.CmdReportProgress, Payload: buf.Bytes()}, nil
	}
}
