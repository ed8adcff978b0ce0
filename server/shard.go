// Package server implements the parameter server shard: a per-key online
// update handler bound at construction time to the configured algorithm,
// owning a contiguous, disjoint range of the key space.
package server

import (
	"fmt"
	"sync"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/optimizer"
	"github.com/asyncps/psengine/progress"
)

// Service is the non-generic surface a shard exposes regardless of which
// entry shape its configured handler uses — the handler is chosen once, at
// New, not redispatched on every key.
type Service interface {
	// Owns reports whether key falls in this shard's range.
	Owns(key feaid.ID) bool
	// Low returns the shard's lower key bound (inclusive), for sorting a
	// set of shards into range order.
	Low() feaid.ID
	// Push applies gradients for keys (ascending, unique) in order,
	// returning the handler's progress delta for the batch.
	Push(keys []feaid.ID, grads []float32) (progress.Progress, error)
	// Pull writes one scalar weight per requested key, in matching order;
	// a key never seen by Push returns the handler's zero value.
	Pull(keys []feaid.ID) ([]float32, error)
	// Dump returns every owned key alongside its persisted columns, for
	// model save; order is unspecified.
	Dump() ([]feaid.ID, [][]float32)
}

// Shard owns entries of type E in [low, high) and dispatches every
// incoming batch to handle. Per-key updates within one Shard are totally
// ordered because every Push/Pull holds mu for its whole batch — simpler
// than hash-partitioning keys across single-threaded workers, at the cost
// of serializing batches against each other within a shard.
type Shard[E any] struct {
	low, high feaid.ID
	handle    optimizer.Handle[E]

	mu      sync.Mutex
	entries map[feaid.ID]E
	t       int64
}

// NewShard creates a shard owning [low, high) dispatching to handle.
func NewShard[E any](low, high feaid.ID, handle optimizer.Handle[E]) *Shard[E] {
	return &Shard[E]{low: low, high: high, handle: handle, entries: make(map[feaid.ID]E)}
}

func (s *Shard[E]) Owns(key feaid.ID) bool {
	return key >= s.low && key < s.high
}

func (s *Shard[E]) Low() feaid.ID { return s.low }

func (s *Shard[E]) Push(keys []feaid.ID, grads []float32) (progress.Progress, error) {
	if len(keys) != len(grads) {
		return progress.Progress{}, fmt.Errorf("server: keys/grads length mismatch: %d != %d", len(keys), len(grads))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.t++
	s.handle.Start(true, s.t)
	for i, key := range keys {
		entry, ok := s.entries[key]
		if !ok {
			s.handle.Init(key, &entry)
		}
		s.handle.Push(key, grads[i], &entry)
		s.entries[key] = entry
	}
	return s.handle.Finish(), nil
}

func (s *Shard[E]) Pull(keys []feaid.ID) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.t++
	s.handle.Start(false, s.t)
	out := make([]float32, len(keys))
	for i, key := range keys {
		entry := s.entries[key] // zero value if never pushed
		s.handle.Pull(key, entry, &out[i])
	}
	return out, nil
}

// Keys returns every key currently owned by this shard, for model save;
// order is unspecified.
func (s *Shard[E]) Keys() []feaid.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]feaid.ID, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Entry returns the current entry for key, for model save.
func (s *Shard[E]) Entry(key feaid.ID) E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key]
}

// Dump implements Service.Dump.
func (s *Shard[E]) Dump() ([]feaid.ID, [][]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]feaid.ID, 0, len(s.entries))
	fields := make([][]float32, 0, len(s.entries))
	for k, e := range s.entries {
		keys = append(keys, k)
		fields = append(fields, s.handle.Fields(e))
	}
	return keys, fields
}
