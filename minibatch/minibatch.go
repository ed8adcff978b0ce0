// Package minibatch defines the immutable minibatch representation and the
// localizer that rewrites a minibatch's global feature-ID columns into a
// dense local index space.
package minibatch

import "github.com/asyncps/psengine/feaid"

// RowBlock is a compressed sparse block of rows: row offsets into Index/
// Value, the column indices themselves, and optional per-entry values
// (libsvm-style "index:value" pairs may omit the value, implying 1.0).
type RowBlock struct {
	Labels []float32
	Offset []int   // length len(Labels)+1
	Index  []feaid.ID
	Value  []float32 // may be nil; when non-nil, len(Value) == len(Index)
}

// Size returns the number of rows (examples) in the block.
func (r *RowBlock) Size() int {
	return len(r.Labels)
}

// Row returns the column indices and (if present) values of row i.
func (r *RowBlock) Row(i int) ([]feaid.ID, []float32) {
	idx := r.Index[r.Offset[i]:r.Offset[i+1]]
	if r.Value == nil {
		return idx, nil
	}
	return idx, r.Value[r.Offset[i]:r.Offset[i+1]]
}

// Minibatch is an immutable snapshot of a contiguous block of training
// examples in global-K column-index space, as produced by a reader.
type Minibatch struct {
	Rows RowBlock
}

// LocalizedMinibatch is the same rows as a Minibatch but with column
// indices rewritten to a dense 0..m-1 index against FeaID, a sorted unique
// global-ID vector of length m. FeaID[c] is the global ID corresponding to
// local column c.
type LocalizedMinibatch struct {
	Rows  RowBlock
	FeaID []feaid.ID
}
