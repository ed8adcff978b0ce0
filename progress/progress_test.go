package progress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeIsIdentityWithZeroValue(t *testing.T) {
	p := Progress{NumExamples: 100, MinibatchCount: 10, NnzW: 50, NnzV: 5, ObjectiveSum: 12.5, AUCSum: 6.25, ClampedGrads: 2}
	got := p
	got.Merge(Progress{})
	assert.Equal(t, p, got)
}

func TestMergeIsCommutative(t *testing.T) {
	a := Progress{NumExamples: 100, MinibatchCount: 4, ObjectiveSum: 50.0}
	b := Progress{NumExamples: 200, MinibatchCount: 8, ObjectiveSum: 80.0}

	ab := a
	ab.Merge(b)
	ba := b
	ba.Merge(a)
	assert.Equal(t, ab, ba)
}

func TestMergeIsAssociative(t *testing.T) {
	a := Progress{NumExamples: 10, ObjectiveSum: 1.5, AUCSum: 0.5, MinibatchCount: 1}
	b := Progress{NumExamples: 20, ObjectiveSum: 2.5, AUCSum: 1.5, MinibatchCount: 2}
	c := Progress{NumExamples: 30, ObjectiveSum: 3.5, AUCSum: 2.5, MinibatchCount: 3}

	left := a
	left.Merge(b)
	left.Merge(c)

	right := b
	right.Merge(c)
	merged := a
	merged.Merge(right)

	assert.Equal(t, left, merged)
}

// TestMergeAggregatesTwoWorkersRunningTotal merges a 100-example batch
// with objective sum 50.0 and a 200-example batch with objective sum
// 80.0: the combined logloss ratio is 130/300.
func TestMergeAggregatesTwoWorkersRunningTotal(t *testing.T) {
	a := Progress{NumExamples: 100, ObjectiveSum: 50.0}
	b := Progress{NumExamples: 200, ObjectiveSum: 80.0}

	a.Merge(b)
	assert.Equal(t, int64(300), a.NumExamples)
	assert.InDelta(t, 130.0, a.ObjectiveSum, 1e-9)
	assert.InDelta(t, 130.0/300.0, a.ObjectiveSum/float64(a.NumExamples), 1e-9)
}

func TestMergeRandomOrderingsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	parts := make([]Progress, 20)
	for i := range parts {
		parts[i] = Progress{
			NumExamples:    rng.Int63n(1000),
			MinibatchCount: rng.Int63n(50),
			NnzW:           rng.Int63n(500),
			NnzV:           rng.Int63n(500),
			ObjectiveSum:   rng.Float64() * 100,
			AUCSum:         rng.Float64() * 100,
			ClampedGrads:   rng.Int63n(10),
		}
	}

	forward := Progress{}
	for _, p := range parts {
		forward.Merge(p)
	}

	reversed := Progress{}
	for i := len(parts) - 1; i >= 0; i-- {
		reversed.Merge(parts[i])
	}

	// Integer counters must agree exactly; float sums may differ only by
	// rounding, since float64 addition depends on summation order.
	assert.Equal(t, forward.NumExamples, reversed.NumExamples)
	assert.Equal(t, forward.MinibatchCount, reversed.MinibatchCount)
	assert.Equal(t, forward.NnzW, reversed.NnzW)
	assert.Equal(t, forward.NnzV, reversed.NnzV)
	assert.Equal(t, forward.ClampedGrads, reversed.ClampedGrads)
	assert.InDelta(t, forward.ObjectiveSum, reversed.ObjectiveSum, 1e-9)
	assert.InDelta(t, forward.AUCSum, reversed.AUCSum, 1e-9)
}

func TestEmptyReportsNoExamplesRecorded(t *testing.T) {
	assert.True(t, Progress{}.Empty())
	assert.False(t, Progress{NumExamples: 1}.Empty())
	assert.False(t, Progress{MinibatchCount: 1}.Empty())
}

func TestPrintStrEmptyWhenNoExamples(t *testing.T) {
	assert.Equal(t, "", Progress{}.PrintStr(Progress{}))
}

func TestPrintStrNonEmpty(t *testing.T) {
	p := Progress{NumExamples: 100, MinibatchCount: 10, NnzW: 50, ObjectiveSum: 25.0, AUCSum: 7.0}
	out := p.PrintStr(Progress{NumExamples: 50})
	assert.NotEmpty(t, out)
}
