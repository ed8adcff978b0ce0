// Package local implements the in-process transport: a direct-call
// Dispatcher/Broadcaster pair and a Store that fans push/pull batches out
// across range-partitioned server.Service shards without going over the
// network. This is the embedded single-process deployment mode — scheduler,
// worker, and server all run in one process, talking through Go calls
// instead of RPC.
package local

import (
	"fmt"
	"sort"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/progress"
	"github.com/asyncps/psengine/server"
	"github.com/asyncps/psengine/transport"
)

// Store implements transport.ParamStore over a set of range-partitioned
// shards, sorted ascending by Low bound and covering the key space with no
// gaps or overlaps (the caller is responsible for constructing them that
// way — Store only routes, it does not validate partitioning).
type Store struct {
	shards []server.Service // sorted ascending by Low
	report func(progress.Progress)
}

// NewStore builds a Store over shards, sorted by owned range. report, if
// non-nil, receives every Push batch's progress delta (wired to a
// progress.WorkerMonitor or progress.DistMonitor by the caller).
func NewStore(shards []server.Service, report func(progress.Progress)) *Store {
	sorted := make([]server.Service, len(shards))
	copy(sorted, shards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Low() < sorted[j].Low()
	})
	return &Store{shards: sorted, report: report}
}

// shardFor finds the shard owning key by linear scan; shard counts per
// process are small (one per configured key-space partition), so this
// does not warrant a binary search over Owns, which is not monotone
// across the full shard slice.
func (s *Store) shardFor(key feaid.ID) (server.Service, error) {
	for _, shard := range s.shards {
		if shard.Owns(key) {
			return shard, nil
		}
	}
	return nil, fmt.Errorf("local: no shard owns key %d", key)
}

// Push partitions keys/values across shards, applies each sub-batch, and
// reports each shard's progress delta (one report call per shard touched)
// before invoking cb. Runs synchronously
// but on its own goroutine to honor transport.ParamStore's async contract.
func (s *Store) Push(keys []feaid.ID, values []float32, _ transport.Filter, cb transport.PushCallback) {
	go func() {
		groups, err := s.group(keys, values)
		if err != nil {
			if cb != nil {
				cb(err)
			}
			return
		}
		for shard, g := range groups {
			prog, err := shard.Push(g.keys, g.values)
			if err != nil {
				if cb != nil {
					cb(err)
				}
				return
			}
			if s.report != nil {
				s.report(prog)
			}
		}
		if cb != nil {
			cb(nil)
		}
	}()
}

// Pull partitions keys across shards, gathers each shard's weights, and
// reassembles the result in the caller's original key order.
func (s *Store) Pull(keys []feaid.ID, _ transport.Filter, cb transport.PullCallback) {
	go func() {
		out := make([]float32, len(keys))
		byShard := make(map[server.Service][]int) // shard -> indices into keys
		for i, key := range keys {
			shard, err := s.shardFor(key)
			if err != nil {
				if cb != nil {
					cb(nil, err)
				}
				return
			}
			byShard[shard] = append(byShard[shard], i)
		}
		for shard, idxs := range byShard {
			subKeys := make([]feaid.ID, len(idxs))
			for j, idx := range idxs {
				subKeys[j] = keys[idx]
			}
			values, err := shard.Pull(subKeys)
			if err != nil {
				if cb != nil {
					cb(nil, err)
				}
				return
			}
			for j, idx := range idxs {
				out[idx] = values[j]
			}
		}
		if cb != nil {
			cb(out, nil)
		}
	}()
}

type group struct {
	keys   []feaid.ID
	values []float32
}

func (s *Store) group(keys []feaid.ID, values []float32) (map[server.Service]*group, error) {
	groups := make(map[server.Service]*group)
	for i, key := range keys {
		shard, err := s.shardFor(key)
		if err != nil {
			return nil, err
		}
		g, ok := groups[shard]
		if !ok {
			g = &group{}
			groups[shard] = g
		}
		g.keys = append(g.keys, key)
		g.values = append(g.values, values[i])
	}
	return groups, nil
}
