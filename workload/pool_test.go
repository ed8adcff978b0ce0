package workload

import (
	"testing"
	"time"

	"github.com/asyncps/psengine/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolFIFOOrder(t *testing.T) {
	p := New(0)
	p.Add([]string{"a.libsvm", "b.libsvm"}, 2, progress.Train)

	var got []int
	for {
		part, ok := p.Get("w1")
		if !ok {
			break
		}
		got = append(got, part.ID)
	}
	require.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestPoolAddSetsFileIndexByPositionInFileList(t *testing.T) {
	p := New(0)
	p.Add([]string{"a.libsvm", "b.libsvm"}, 2, progress.Train)

	got := make(map[int]int) // FileIndex -> count of partitions naming it
	for {
		part, ok := p.Get("w1")
		if !ok {
			break
		}
		got[part.FileIndex]++
		if part.FilePath == "a.libsvm" {
			assert.Equal(t, 0, part.FileIndex)
		} else {
			assert.Equal(t, 1, part.FileIndex)
		}
	}
	assert.Equal(t, 2, got[0])
	assert.Equal(t, 2, got[1])
}

func TestPoolFinishAndIsFinished(t *testing.T) {
	p := New(0)
	p.Add([]string{"a.libsvm"}, 2, progress.Train)

	part0, ok := p.Get("w1")
	require.True(t, ok)
	part1, ok := p.Get("w2")
	require.True(t, ok)

	assert.False(t, p.IsFinished())
	p.Finish("w1", part0.ID)
	assert.False(t, p.IsFinished())
	p.Finish("w2", part1.ID)
	assert.True(t, p.IsFinished())
}

func TestPoolStaleFinishIgnored(t *testing.T) {
	p := New(0)
	p.Add([]string{"a.libsvm"}, 1, progress.Train)

	part, ok := p.Get("w1")
	require.True(t, ok)

	// w2 never owned this partition; the stale finish must be ignored.
	p.Finish("w2", part.ID)
	assert.False(t, p.IsFinished())

	p.Finish("w1", part.ID)
	assert.True(t, p.IsFinished())
}

func TestPoolSweepReassignsTimedOutPartitions(t *testing.T) {
	p := New(10 * time.Millisecond)
	p.Add([]string{"a.libsvm"}, 1, progress.Train)

	_, ok := p.Get("w1")
	require.True(t, ok)

	_, ok = p.Get("w2")
	require.False(t, ok, "only one partition exists and it is assigned")

	time.Sleep(20 * time.Millisecond)
	p.Sweep()

	part, ok := p.Get("w2")
	require.True(t, ok, "timed-out assignment should be requeued")
	assert.Equal(t, 0, part.ID)
}

func TestPoolMarkDeadRequeues(t *testing.T) {
	p := New(0)
	p.Add([]string{"a.libsvm", "b.libsvm"}, 1, progress.Train)

	part0, ok := p.Get("w1")
	require.True(t, ok)
	_, ok = p.Get("w1")
	require.True(t, ok)

	p.MarkDead("w1")

	var got []int
	for {
		part, ok := p.Get("w2")
		if !ok {
			break
		}
		got = append(got, part.ID)
	}
	assert.Contains(t, got, part0.ID)
	assert.Len(t, got, 2)
}
