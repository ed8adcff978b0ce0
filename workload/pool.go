// Package workload implements the scheduler's Workload Pool: the mapping
// from partition ID to {unassigned, assigned(worker, start_time), finished}.
// Generalized from 9rum/chronica's internal/data.Dataset ownership-tracking
// shape — nearest-size lookup becomes FIFO-by-insertion-order lookup, since
// the Pool's selection policy is strict FIFO, not bin-packing.
package workload

import (
	"sort"
	"sync"
	"time"

	"github.com/asyncps/psengine/progress"
)

type status int

const (
	unassigned status = iota
	assigned
	finished
)

type record struct {
	partition Partition
	status    status
	worker    string
	startedAt time.Time
}

// Pool tracks partition assignment for one epoch's worth of work. Safe for
// concurrent use; the scheduler is the Pool's only writer in a given epoch,
// but Get/Finish may race with the timeout sweep goroutine.
type Pool struct {
	mu         sync.Mutex
	records    map[int]*record
	unassigned []int // sorted ascending by partition ID; invariant maintained on every mutation
	nextID     int
	timeout    time.Duration
}

// New creates an empty pool. A zero assignment that exceeds timeout is
// returned to unassigned by Sweep; timeout <= 0 disables the timeout check
// (Sweep becomes a no-op).
func New(timeout time.Duration) *Pool {
	return &Pool{records: make(map[int]*record), timeout: timeout}
}

// Add enumerates files x [0, numPartsPerFile) into unassigned partitions
// for the given phase.
func (p *Pool) Add(files []string, numPartsPerFile int, phase progress.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for fi, file := range files {
		for part := 0; part < numPartsPerFile; part++ {
			id := p.nextID
			p.nextID++
			p.records[id] = &record{partition: Partition{
				ID: id, FilePath: file, FileIndex: fi, PartID: part, NumParts: numPartsPerFile, Phase: phase,
			}}
			p.unassigned = append(p.unassigned, id) // ids are strictly increasing, stays sorted
		}
	}
}

// Get picks the oldest unassigned partition (FIFO over insertion order,
// ties broken by partition ID — which coincide, since IDs are assigned in
// insertion order), marks it assigned to workerID, and stamps the time.
func (p *Pool) Get(workerID string) (Partition, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.unassigned) == 0 {
		return Partition{}, false
	}
	id := p.unassigned[0]
	p.unassigned = p.unassigned[1:]

	rec := p.records[id]
	rec.status = assigned
	rec.worker = workerID
	rec.startedAt = time.Now()
	return rec.partition, true
}

// Finish marks workerID's current assignment finished. A stale finish
// (workerID does not match the current assignee, e.g. from a partition that
// was already reassigned) is ignored, absorbing at-least-once delivery.
func (p *Pool) Finish(workerID string, partitionID int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[partitionID]
	if !ok || rec.status != assigned || rec.worker != workerID {
		return
	}
	rec.status = finished
}

// IsFinished reports whether every partition has been finished.
func (p *Pool) IsFinished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range p.records {
		if rec.status != finished {
			return false
		}
	}
	return true
}

// MarkDead returns any partition currently assigned to workerID to
// unassigned, for redistribution to a live worker — used when the
// transport declares workerID dead.
func (p *Pool) MarkDead(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, rec := range p.records {
		if rec.status == assigned && rec.worker == workerID {
			p.requeue(id, rec)
		}
	}
}

// Sweep returns any assignment older than the pool's timeout to unassigned.
// It does nothing if the pool was constructed with a non-positive timeout.
func (p *Pool) Sweep() {
	if p.timeout <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for id, rec := range p.records {
		if rec.status == assigned && now.Sub(rec.startedAt) > p.timeout {
			p.requeue(id, rec)
		}
	}
}

// requeue returns a single assigned partition to unassigned, keeping the
// unassigned slice sorted by ID. Caller must hold p.mu.
func (p *Pool) requeue(id int, rec *record) {
	rec.status = unassigned
	rec.worker = ""
	i := sort.SearchInts(p.unassigned, id)
	p.unassigned = append(p.unassigned, 0)
	copy(p.unassigned[i+1:], p.unassigned[i:])
	p.unassigned[i] = id
}
