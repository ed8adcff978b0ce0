package worker

import "sync"

// Gate is the bounded-staleness gate: a single mutex + condition variable
// guarding one worker's in-flight minibatch count.
// The reader goroutine calls Acquire when it dispatches a pull and
// Release when the minibatch's push (train) or pull (validation)
// completes; Acquire blocks while the count exceeds maxDelay, bounding
// worker-to-server staleness to at most maxDelay+1 in-flight minibatches.
type Gate struct {
	mu       sync.Mutex
	cond     *sync.Cond
	inFlight int
	maxDelay int
}

// NewGate creates a gate with the given staleness window. maxDelay <= 0
// is treated as unbounded (the validation phase never pushes, so there is
// nothing to bound delay against).
func NewGate(maxDelay int) *Gate {
	g := &Gate{maxDelay: maxDelay}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Acquire increments in-flight and blocks while in-flight exceeds the
// configured window.
func (g *Gate) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight++
	if g.maxDelay <= 0 {
		return
	}
	for g.inFlight > g.maxDelay {
		g.cond.Wait()
	}
}

// Release decrements in-flight and wakes every waiter (Acquire callers
// and a pending DrainWait alike) to recheck their condition.
func (g *Gate) Release() {
	g.mu.Lock()
	g.inFlight--
	g.cond.Broadcast()
	g.mu.Unlock()
}

// InFlight reports the current in-flight count, for tests and monitoring.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// DrainWait blocks until in-flight reaches zero — the end-of-partition
// suspension point, so Process does not return while a callback might
// still touch the gate or the monitor.
func (g *Gate) DrainWait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.inFlight > 0 {
		g.cond.Wait()
	}
}
