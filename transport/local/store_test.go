package local

import (
	"sync"
	"testing"
	"time"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *progressCollector) {
	t.Helper()
	shardA, err := server.New(0, 100, server.Config{Algo: "sgd", Alpha: 1, Beta: 1})
	require.NoError(t, err)
	shardB, err := server.New(100, 200, server.Config{Algo: "sgd", Alpha: 1, Beta: 1})
	require.NoError(t, err)

	collector := &progressCollector{}
	st := NewStore([]server.Service{shardB, shardA}, collector.add) // deliberately unsorted input
	return st, collector
}

type progressCollector struct {
	mu  sync.Mutex
	all []progress.Progress
}

func (c *progressCollector) add(p progress.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = append(c.all, p)
}

func (c *progressCollector) total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, p := range c.all {
		total += p.NnzW
	}
	return total
}

func TestStorePushRoutesAcrossShardBoundary(t *testing.T) {
	st, collector := newTestStore(t)

	done := make(chan error, 1)
	st.Push([]feaid.ID{5, 150}, []float32{1.0, -1.0}, transport.Filter{}, func(err error) {
		done <- err
	})
	require.NoError(t, <-done)

	waitFor(t, func() bool { return collector.total() == 2 })
}

func TestStorePullUnknownKeyErrors(t *testing.T) {
	st, _ := newTestStore(t)

	done := make(chan error, 1)
	st.Pull([]feaid.ID{9999}, transport.Filter{}, func(values []float32, err error) {
		done <- err
	})
	require.Error(t, <-done)
}

func TestStorePullReassemblesInRequestOrder(t *testing.T) {
	st, _ := newTestStore(t)

	pushDone := make(chan error, 1)
	st.Push([]feaid.ID{5, 150}, []float32{1.0, -1.0}, transport.Filter{}, func(err error) { pushDone <- err })
	require.NoError(t, <-pushDone)

	pullDone := make(chan struct {
		values []float32
		err    error
	}, 1)
	st.Pull([]feaid.ID{150, 5}, transport.Filter{}, func(values []float32, err error) {
		pullDone <- struct {
			values []float32
			err    error
		}{values, err}
	})
	res := <-pullDone
	require.NoError(t, res.err)
	require.Len(t, res.values, 2)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
