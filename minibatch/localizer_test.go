package minibatch

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalizeS1 is scenario S1: two rows [(17,1.0),(5,2.0),(17,3.0)] and
// [(5,4.0),(99,5.0)] localize to feaid=[5,17,99] and rewritten rows
// [(1,1.0),(0,2.0),(1,3.0)], [(0,4.0),(2,5.0)].
func TestLocalizeS1(t *testing.T) {
	mb := Minibatch{Rows: RowBlock{
		Labels: []float32{0, 0},
		Offset: []int{0, 3, 5},
		Index:  []uint64{17, 5, 17, 5, 99},
		Value:  []float32{1.0, 2.0, 3.0, 4.0, 5.0},
	}}

	out := Localize(mb)

	require.Equal(t, []uint64{5, 17, 99}, out.FeaID)
	assert.Equal(t, []uint64{1, 0, 1, 0, 2}, out.Rows.Index)
	assert.Equal(t, mb.Rows.Value, out.Rows.Value)
	assert.Equal(t, mb.Rows.Offset, out.Rows.Offset)
}

// TestLocalizeAscendingNoDuplicates is invariant 1: FeaID is strictly
// ascending with no duplicates, and the rewrite preserves row count and
// per-row length for arbitrary input.
func TestLocalizeAscendingNoDuplicates(t *testing.T) {
	mb := Minibatch{Rows: RowBlock{
		Labels: []float32{0, 0, 0},
		Offset: []int{0, 2, 2, 5},
		Index:  []uint64{1000, 3, 3, 1000, 7},
	}}

	out := Localize(mb)

	for i := 1; i < len(out.FeaID); i++ {
		assert.Less(t, out.FeaID[i-1], out.FeaID[i])
	}
	assert.True(t, sort.SliceIsSorted(out.FeaID, func(i, j int) bool { return out.FeaID[i] < out.FeaID[j] }))

	require.Equal(t, len(mb.Rows.Offset), len(out.Rows.Offset))
	require.Equal(t, mb.Rows.Offset, out.Rows.Offset)

	for i := range out.Rows.Index {
		assert.Equal(t, mb.Rows.Index[i], out.FeaID[out.Rows.Index[i]])
	}
}
