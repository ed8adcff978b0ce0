package local

import (
	"context"
	"fmt"
	"sync"

	"github.com/asyncps/psengine/transport"
)

// Registry is an in-process Dispatcher and Broadcaster: every role
// registers its transport.Handler under a peer name, and Send/Broadcast
// invoke it directly rather than over the network — the embedded
// transport's fan-out, grounded on 9rum/chronica's recovery-interceptor
// goroutine dispatch in its gRPC server setup, generalized here to a
// plain map-and-WaitGroup fan-out since there is no wire to cross.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]transport.Handler
	roles    map[string]transport.Role
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]transport.Handler),
		roles:    make(map[string]transport.Role),
	}
}

// Register binds peer to handler under role, replacing any prior binding
// (used when a worker reconnects under the same name after a restart).
func (r *Registry) Register(peer string, role transport.Role, handler transport.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[peer] = handler
	r.roles[peer] = role
}

// Unregister removes peer, e.g. once the scheduler declares it dead.
func (r *Registry) Unregister(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, peer)
	delete(r.roles, peer)
}

// Send implements transport.Dispatcher by calling peer's handler directly.
func (r *Registry) Send(ctx context.Context, peer string, frame transport.Frame) (transport.Frame, error) {
	r.mu.RLock()
	handler, ok := r.handlers[peer]
	r.mu.RUnlock()
	if !ok {
		return transport.Frame{}, fmt.Errorf("local: no peer registered as %q", peer)
	}
	return handler(ctx, frame)
}

// Broadcast implements transport.Broadcaster by calling every peer
// registered under role concurrently and collecting each reply's error
// (nil entries are dropped; a per-peer error does not stop the others).
func (r *Registry) Broadcast(ctx context.Context, role transport.Role, frame transport.Frame) []error {
	r.mu.RLock()
	var peers []string
	for peer, pr := range r.roles {
		if pr == role {
			peers = append(peers, peer)
		}
	}
	handlers := make([]transport.Handler, len(peers))
	for i, peer := range peers {
		handlers[i] = r.handlers[peer]
	}
	r.mu.RUnlock()

	errs := make([]error, len(peers))
	var wg sync.WaitGroup
	wg.Add(len(peers))
	for i := range peers {
		i := i
		go func() {
			defer wg.Done()
			_, err := handlers[i](ctx, frame)
			errs[i] = err
		}()
	}
	wg.Wait()

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
