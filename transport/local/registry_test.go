package local

import (
	"context"
	"sync"
	"testing"

	"github.com/asyncps/psengine/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySendRoundTrips(t *testing.T) {
	r := NewRegistry()
	r.Register("w1", transport.RoleWorker, func(ctx context.Context, f transport.Frame) (transport.Frame, error) {
		return transport.Frame{Role: transport.RoleWorker, Sender: "w1", Cmd: f.Cmd}, nil
	})

	reply, err := r.Send(context.Background(), "w1", transport.Frame{Cmd: transport.CmdProcess})
	require.NoError(t, err)
	assert.Equal(t, transport.CmdProcess, reply.Cmd)
}

func TestRegistrySendUnknownPeerErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Send(context.Background(), "ghost", transport.Frame{})
	assert.Error(t, err)
}

func TestRegistryBroadcastReachesEveryRoleMember(t *testing.T) {
	r := NewRegistry()
	var mu sync.Mutex
	var got []string
	record := func(name string) transport.Handler {
		return func(ctx context.Context, f transport.Frame) (transport.Frame, error) {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
			return transport.Frame{}, nil
		}
	}
	r.Register("s1", transport.RoleServer, record("s1"))
	r.Register("s2", transport.RoleServer, record("s2"))
	r.Register("w1", transport.RoleWorker, record("w1"))

	errs := r.Broadcast(context.Background(), transport.RoleServer, transport.Frame{Cmd: transport.CmdSaveModel})
	assert.Empty(t, errs)
	assert.ElementsMatch(t, []string{"s1", "s2"}, got)
}

func TestRegistryBroadcastCollectsErrors(t *testing.T) {
	r := NewRegistry()
	r.Register("s1", transport.RoleServer, func(context.Context, transport.Frame) (transport.Frame, error) {
		return transport.Frame{}, assert.AnError
	})

	errs := r.Broadcast(context.Background(), transport.RoleServer, transport.Frame{})
	assert.Len(t, errs, 1)
}
