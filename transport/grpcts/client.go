package grpcts

import (
	"context"
	"fmt"
	"sync"

	"github.com/asyncps/psengine/transport"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dialer implements transport.Dispatcher and transport.Broadcaster by
// dialing one grpc.ClientConn per peer address and caching it — peer
// names are logical names bound to a "host:port" dial address by Register,
// dialed once on first Send.
type Dialer struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
	// peers maps a logical peer name to its dial address and role, set via
	// Register; Send/Broadcast look a name up here before dialing.
	peers map[string]peerInfo
}

type peerInfo struct {
	addr string
	role transport.Role
}

// NewDialer creates an empty Dialer.
func NewDialer() *Dialer {
	return &Dialer{conns: make(map[string]*grpc.ClientConn), peers: make(map[string]peerInfo)}
}

// Register records addr as the dial target for peer, under role — used by
// Broadcast to find every member of a role group.
func (d *Dialer) Register(peer, addr string, role transport.Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[peer] = peerInfo{addr: addr, role: role}
}

// Unregister drops peer and closes its cached connection, if any.
func (d *Dialer) Unregister(peer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if conn, ok := d.conns[peer]; ok {
		conn.Close()
		delete(d.conns, peer)
	}
	delete(d.peers, peer)
}

func (d *Dialer) connFor(peer string) (*grpc.ClientConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if conn, ok := d.conns[peer]; ok {
		return conn, nil
	}
	info, ok := d.peers[peer]
	if !ok {
		return nil, fmt.Errorf("grpcts: no peer registered as %q", peer)
	}
	conn, err := grpc.Dial(info.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpc_prometheus.UnaryClientInterceptor),
	)
	if err != nil {
		return nil, fmt.Errorf("grpcts: dial %s: %w", info.addr, err)
	}
	d.conns[peer] = conn
	return conn, nil
}

// Send implements transport.Dispatcher.
func (d *Dialer) Send(ctx context.Context, peer string, frame transport.Frame) (transport.Frame, error) {
	conn, err := d.connFor(peer)
	if err != nil {
		return transport.Frame{}, err
	}
	return exchangeClient(ctx, conn, frame)
}

// Broadcast implements transport.Broadcaster by calling Send against
// every peer registered under role, concurrently.
func (d *Dialer) Broadcast(ctx context.Context, role transport.Role, frame transport.Frame) []error {
	d.mu.Lock()
	var peers []string
	for peer, info := range d.peers {
		if info.role == role {
			peers = append(peers, peer)
		}
	}
	d.mu.Unlock()

	errs := make([]error, len(peers))
	var wg sync.WaitGroup
	wg.Add(len(peers))
	for i, peer := range peers {
		i, peer := i, peer
		go func() {
			defer wg.Done()
			_, err := d.Send(ctx, peer, frame)
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

// Close closes every cached connection.
func (d *Dialer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, conn := range d.conns {
		conn.Close()
	}
	d.conns = make(map[string]*grpc.ClientConn)
}
