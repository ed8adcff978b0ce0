package minibatch

import "sort"

// Localize rewrites mb's global-K column indices into the dense local index
// space of a sorted, duplicate-free FeaID vector. Row order and per-row
// length are preserved; only Index values change. Complexity is
// O(nnz log u) where u is the number of unique IDs touched.
func Localize(mb Minibatch) LocalizedMinibatch {
	n := len(mb.Rows.Index)

	// Collect the sorted unique IDs.
	seen := make(map[uint64]struct{}, n)
	feaIDs := make([]uint64, 0, n)
	for _, id := range mb.Rows.Index {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			feaIDs = append(feaIDs, id)
		}
	}
	sort.Slice(feaIDs, func(i, j int) bool { return feaIDs[i] < feaIDs[j] })

	local := make(map[uint64]int, len(feaIDs))
	for i, id := range feaIDs {
		local[id] = i
	}

	rewritten := make([]uint64, n)
	for i, id := range mb.Rows.Index {
		rewritten[i] = uint64(local[id])
	}

	out := mb.Rows
	out.Index = rewritten

	return LocalizedMinibatch{Rows: out, FeaID: feaIDs}
}
