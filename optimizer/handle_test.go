package optimizer

import (
	"math"
	"testing"

	"github.com/asyncps/psengine/feaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProxBounds verifies invariant 6: Prox maps [-lambda1, lambda1] to zero
// and is monotone in its first argument outside that interval.
func TestProxBounds(t *testing.T) {
	p := Penalty{Lambda1: 0.1, Lambda2: 0.01}
	for _, u := range []float32{-0.1, -0.05, 0, 0.05, 0.1} {
		assert.Zero(t, p.Prox(u, 1), "u=%v", u)
	}

	prev := p.Prox(0.1, 1)
	for _, u := range []float32{0.2, 0.5, 1, 2} {
		cur := p.Prox(u, 1)
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

// TestFTRLSingleKey is scenario S2: alpha=1, beta=1, lambda1=0.1, lambda2=0,
// pushing gradients 0.5, -0.2, 0.3 on a key starting at zero.
func TestFTRLSingleKey(t *testing.T) {
	h := NewFTRLHandle(1, 1, Penalty{Lambda1: 0.1})
	var entry feaid.FTRLEntry

	h.Start(true, 0)
	h.Push(1, 0.5, &entry)
	require.InDelta(t, 0.5, entry.SqCumGrad, 1e-6)
	require.InDelta(t, 0.5, entry.Z, 1e-6)
	require.InDelta(t, -0.26666667, entry.W, 1e-6)

	h.Start(true, 1)
	h.Push(1, -0.2, &entry)
	sqrtN := float32(math.Sqrt(0.5*0.5 + 0.2*0.2))
	require.InDelta(t, sqrtN, entry.SqCumGrad, 1e-6)

	h.Start(true, 2)
	h.Push(1, 0.3, &entry)
	require.False(t, math.IsNaN(float64(entry.W)))
}

// TestSGDAlgorithmSwitch is scenario S6: with a very large lambda1, after
// one Push, touched weights are exactly zero.
func TestSGDAlgorithmSwitch(t *testing.T) {
	h := NewSGDHandle(1, 1, Penalty{Lambda1: 1e9})
	var entry feaid.SGDEntry
	h.Start(true, 0)
	h.Push(42, 1.234, &entry)
	assert.Equal(t, float32(0), entry.W)
}

// TestAdaGradSqCumGradNonNegative is part of invariant 2: sq_cum_grad stays
// non-negative and matches sqrt(sum g_i^2) over the push-ordered sequence.
func TestAdaGradSqCumGradNonNegative(t *testing.T) {
	h := NewAdaGradHandle(1, 1, Penalty{})
	var entry feaid.AdaGradEntry
	grads := []float32{0.5, -1.2, 3.4, -0.1}
	var sumSq float64
	for _, g := range grads {
		h.Start(true, 0)
		h.Push(7, g, &entry)
		sumSq += float64(g) * float64(g)
		assert.GreaterOrEqual(t, entry.SqCumGrad, float32(0))
		assert.InDelta(t, math.Sqrt(sumSq), entry.SqCumGrad, 1e-5)
	}
}

// TestClampNonFiniteGradient verifies the overflow edge case: a non-finite
// gradient is clamped to zero before being applied, and is counted.
func TestClampNonFiniteGradient(t *testing.T) {
	h := NewSGDHandle(1, 1, Penalty{})
	var entry feaid.SGDEntry
	h.Start(true, 0)
	h.Push(1, float32(math.NaN()), &entry)
	assert.False(t, math.IsNaN(float64(entry.W)))
	prog := h.Finish()
	assert.Equal(t, int64(1), prog.ClampedGrads)
}

// TestFinishResetsCounters verifies Finish flushes and resets the
// per-batch nnz/clamp deltas.
func TestFinishResetsCounters(t *testing.T) {
	h := NewSGDHandle(1, 1, Penalty{})
	var entry feaid.SGDEntry
	h.Start(true, 0)
	h.Push(1, 1.0, &entry)
	first := h.Finish()
	assert.Equal(t, int64(1), first.NnzW)

	second := h.Finish()
	assert.Zero(t, second.NnzW)
	assert.Zero(t, second.ClampedGrads)
}
