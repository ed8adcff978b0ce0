package worker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asyncps/psengine/loss"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport/local"
	"github.com/asyncps/psengine/workload"
)

func newTestHandler(t *testing.T, cfg Config) *Handler {
	shard, err := server.New(0, 1000, server.Config{Algo: "sgd", Alpha: 1, Beta: 1})
	require.NoError(t, err)
	store := local.NewStore([]server.Service{shard}, nil)
	return &Handler{
		Pipeline: &Pipeline{
			Store:   store,
			Monitor: &progress.WorkerMonitor{},
			NewLoss: func() loss.Interface { return loss.NewLogistic() },
			Config:  cfg,
		},
		DataFormat: "libsvm",
	}
}

func TestHandleProcessUsesWorkerLocalFileWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "local0.libsvm")
	require.NoError(t, os.WriteFile(localPath, []byte("1 1:1.0 2:2.0\n"), 0o644))

	h := newTestHandler(t, Config{Minibatch: 8, MaxDelay: 2, Threads: 1, UseLocalData: true, TrainFiles: []string{localPath}})

	// FilePath deliberately points somewhere nonexistent: UseLocalData must
	// ignore it and resolve localPath through FileIndex instead.
	part := workload.Partition{ID: 1, FilePath: "/does/not/exist.libsvm", FileIndex: 0, PartID: 0, NumParts: 1, Phase: progress.Train}

	prog, err := h.HandleProcess(part)
	require.NoError(t, err)
	require.Equal(t, int64(1), prog.NumExamples)
}

func TestHandleProcessWorkerLocalFileIndexOutOfRangeErrors(t *testing.T) {
	h := newTestHandler(t, Config{Minibatch: 8, MaxDelay: 2, Threads: 1, UseLocalData: true, TrainFiles: []string{"only.libsvm"}})
	part := workload.Partition{ID: 1, FilePath: "irrelevant", FileIndex: 5, PartID: 0, NumParts: 1, Phase: progress.Train}

	_, err := h.HandleProcess(part)
	require.Error(t, err)
}

func TestHandleProcessUsesScheduledPathWhenLocalDataDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.libsvm")
	require.NoError(t, os.WriteFile(path, []byte("1 1:1.0 2:2.0\n-1 2:1.0\n"), 0o644))

	h := newTestHandler(t, Config{Minibatch: 8, MaxDelay: 2, Threads: 1})
	part := workload.Partition{ID: 1, FilePath: path, FileIndex: 99, PartID: 0, NumParts: 1, Phase: progress.Train}

	prog, err := h.HandleProcess(part)
	require.NoError(t, err)
	require.Equal(t, int64(2), prog.NumExamples)
}
