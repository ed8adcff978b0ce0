package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerMonitorAddAndSnapshotClears(t *testing.T) {
	var m WorkerMonitor
	m.Add(Progress{NumExamples: 10})
	m.Add(Progress{NumExamples: 5})

	snap := m.Snapshot()
	assert.Equal(t, int64(15), snap.NumExamples)

	again := m.Snapshot()
	assert.True(t, again.Empty())
}

func TestTimeReporterRateLimitsFlushes(t *testing.T) {
	var m WorkerMonitor
	var sent []Progress
	r := NewTimeReporter(&m, func(p Progress) { sent = append(sent, p) }, time.Hour)

	m.Add(Progress{NumExamples: 1})
	r.MaybeFlush(false)
	assert.Empty(t, sent, "first flush should be withheld until the interval elapses")

	m.Add(Progress{NumExamples: 2})
	r.MaybeFlush(true)
	require.Len(t, sent, 1)
	assert.Equal(t, int64(3), sent[0].NumExamples)
}

func TestTimeReporterSkipsEmptySnapshot(t *testing.T) {
	var m WorkerMonitor
	var sent []Progress
	r := NewTimeReporter(&m, func(p Progress) { sent = append(sent, p) }, time.Hour)

	r.MaybeFlush(true)
	assert.Empty(t, sent, "an empty snapshot should never be sent")
}

func TestDistMonitorMergeGetClear(t *testing.T) {
	d := NewDistMonitor()
	d.Merge(Train, Progress{NumExamples: 100, ObjectiveSum: 50.0})
	d.Merge(Train, Progress{NumExamples: 200, ObjectiveSum: 80.0})

	got := d.Get(Train)
	assert.Equal(t, int64(300), got.NumExamples)
	assert.InDelta(t, 130.0, got.ObjectiveSum, 1e-9)

	assert.True(t, d.Get(Val).Empty(), "train and validation phases must not cross-pollute")

	d.Clear(Train)
	assert.True(t, d.Get(Train).Empty())
}
