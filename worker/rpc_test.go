package worker

import (
	"bytes"
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asyncps/psengine/loss"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport"
	"github.com/asyncps/psengine/transport/local"
	"github.com/asyncps/psengine/workload"
)

func TestFrameHandlerRoundTripsProcessAndProgressReply(t *testing.T) {
	shard, err := server.New(0, 1000, server.Config{Algo: "sgd", Alpha: 1, Beta: 1})
	require.NoError(t, err)
	store := local.NewStore([]server.Service{shard}, nil)

	h := &Handler{
		Pipeline: &Pipeline{
			Store:   store,
			Monitor: &progress.WorkerMonitor{},
			NewLoss: func() loss.Interface { return loss.NewLogistic() },
			Config:  Config{Minibatch: 8, MaxDelay: 2, Threads: 1},
		},
		DataFormat: "libsvm",
	}
	fh := FrameHandler(h)

	path := filepath.Join(t.TempDir(), "part.libsvm")
	require.NoError(t, os.WriteFile(path, []byte("1 1:1.0 2:2.0\n-1 2:1.0 3:1.0\n"), 0o644))
	part := workload.Partition{ID: 7, FilePath: path, PartID: 0, NumParts: 1, Phase: progress.Train}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(part))

	reply, err := fh(context.Background(), transport.Frame{Cmd: transport.CmdProcess, Payload: buf.Bytes()})
	require.NoError(t, err)
	require.Equal(t, transport.CmdReportProgress, reply.Cmd)

	var rep progressReply
	require.NoError(t, gob.NewDecoder(bytes.NewReader(reply.Payload)).Decode(&rep))
	require.Equal(t, 7, rep.PartitionID)
	require.Equal(t, int64(2), rep.Progress.NumExamples)
}

func TestFrameHandlerRejectsUnsupportedCmd(t *testing.T) {
	h := &Handler{Pipeline: &Pipeline{}}
	fh := FrameHandler(h)
	_, err := fh(context.Background(), transport.Frame{Cmd: transport.CmdPull})
	require.Error(t, err)
}
