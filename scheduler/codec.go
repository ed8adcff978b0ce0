// Package scheduler implements the scheduler role's state machine (spec
// §4.2): WaitReady → Train → (Val?) → NextEpoch, finally Save → Done.
// Grounded on scheduler/scheduler_grpc.go's glog call-site logging (errors
// here are plain fmt.Errorf values, not grpc codes/status errors), and on
// original_source/learn/linear/sgd/async_sgd.h's AsyncSGDScheduler::Run
// display loop.
package scheduler

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/workload"
)

// encodeProcess builds the CmdProcess request frame for part.
func encodeProcess(sender string, part workload.Partition) (transport.Frame, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(part); err != nil {
		return transport.Frame{}, fmt.Errorf("scheduler: encode partition: %w", err)
	}
	return transport.Frame{Role: transport.RoleScheduler, Sender: sender, Cmd: transport.CmdProcess, Payload: buf.Bytes()}, nil
}

// decodeProcess recovers the Partition carried in a CmdProcess frame — the
// worker-side half of encodeProcess.
func decodeProcess(frame transport.Frame) (workload.Partition, error) {
	var part workload.Partition
	if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&part); err != nil {
		return workload.Partition{}, fmt.Errorf("scheduler: decode partition: %w", err)
	}
	return part, nil
}

// encodeProgressReply builds a worker's CmdReportProgress reply carrying
// the partition's accumulated progress.
func encodeProgressReply(sender string, partitionID int, prog progress.Progress) (transport.Frame, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(progressReport{PartitionID: partitionID, Progress: prog}); err != nil {
		return transport.Frame{}, fmt.Errorf("scheduler: encode progress: %w", err)
	}
	return transport.Frame{Role: transport.RoleWorker, Sender: sender, Cmd: transport.CmdReportProgress, Payload: buf.Bytes()}, nil
}

func decodeProgressReply(frame transport.Frame) (progressReport, error) {
	var rep progressReport
	if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&rep); err != nil {
		return progressReport{}, fmt.Errorf("scheduler: decode progress reply: %w", err)
	}
	return rep, nil
}

type progressReport struct {
	PartitionID int
	Progress    progress.Progress
}

// progressUpdate mirrors worker's progressUpdate field-for-field (gob
// matches wire data by field name), an unsolicited progress delta a
// worker sends mid-partition rather than as a CmdProcess reply.
type progressUpdate struct {
	Phase    progress.Phase
	Progress progress.Progress
}

// decodeProgressUpdate recovers the phase/delta carried in a worker's
// unsolicited CmdReportProgress frame.
func decodeProgressUpdate(frame transport.Frame) (progressUpdate, error) {
	var upd progressUpdate
	if err := gob.NewDecoder(bytes.NewReader(frame.Payload)).Decode(&upd); err != nil {
		return progressUpdate{}, fmt.Errorf("scheduler: decode progress update: %w", err)
	}
	return upd, nil
}
