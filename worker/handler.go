package worker

import (
	"fmt"

	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/reader"
	"github.com/asyncps/psengine/workload"
)

// Handler ties a Pipeline to the reader construction and reply steps
// around it: open the partition's reader at the phase-derived minibatch
// size, run the pipeline, and hand back the partition's accumulated
// progress for the scheduler's reply.
type Handler struct {
	Pipeline   *Pipeline
	DataFormat string
}

// HandleProcess implements the worker side of a scheduler Process
// command: open, run, close, and reply. If Pipeline.Config.UseLocalData is
// set, the file is resolved against this worker's own TrainFiles/ValFiles
// by part.FileIndex instead of trusting part.FilePath, for a deployment
// where each worker holds its own local copy of the data under paths the
// scheduler does not necessarily share.
func (h *Handler) HandleProcess(part workload.Partition) (progress.Progress, error) {
	filePath := part.FilePath
	if h.Pipeline.Config.UseLocalData {
		files := h.Pipeline.Config.TrainFiles
		if part.Phase == progress.Val {
			files = h.Pipeline.Config.ValFiles
		}
		if part.FileIndex < 0 || part.FileIndex >= len(files) {
			return progress.Progress{}, fmt.Errorf("worker: local file index %d out of range (have %d local files for phase %v)", part.FileIndex, len(files), part.Phase)
		}
		filePath = files[part.FileIndex]
	}

	mbSize := h.Pipeline.Config.MinibatchSize(part.Phase)
	rd, err := reader.NewLibSVMReader(filePath, part.PartID, part.NumParts, h.DataFormat, mbSize)
	if err != nil {
		return progress.Progress{}, fmt.Errorf("worker: open reader: %w", err)
	}
	defer rd.Close()

	if err := h.Pipeline.Process(rd, part.Phase); err != nil {
		return progress.Progress{}, err
	}
	return h.Pipeline.Monitor.Snapshot(), nil
}
