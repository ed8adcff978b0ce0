package grpcts

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/asyncps/psengine/transport"
	"github.com/golang/glog"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"google.golang.org/grpc"
)

// Server runs one role's transport.Handler behind a real grpc.Server,
// mirroring main.go's newServer/serve bootstrap (recovery interceptor,
// listen-and-Serve, signal-driven GracefulStop) with the grpc-prometheus
// interceptor added from the dragonfly scheduler's metrics wiring.
type Server struct {
	grpcServer *grpc.Server
	handler    transport.Handler
}

// NewServer builds a Server that answers every RPC by invoking handler.
func NewServer(handler transport.Handler) *Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc_prometheus.UnaryServerInterceptor,
			grpc_recovery.UnaryServerInterceptor(),
		),
	)
	s := &Server{grpcServer: grpcServer, handler: handler}
	grpcServer.RegisterService(&serviceDesc, s)
	grpc_prometheus.Register(grpcServer)
	return s
}

// Exchange implements transportServer by delegating to the configured
// transport.Handler.
func (s *Server) Exchange(ctx context.Context, frame *transport.Frame) (*transport.Frame, error) {
	reply, err := s.handler(ctx, *frame)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Serve listens on addr and blocks serving RPCs until the server is
// stopped, exactly as main.go's serve(port) does.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpcts: listen: %w", err)
	}
	glog.Infof("grpcts server listening at %v", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// StopOnSignal gracefully stops the server when done receives a value,
// mirroring main.go's newServer shutdown goroutine.
func (s *Server) StopOnSignal(done <-chan os.Signal) {
	go func() {
		<-done
		s.grpcServer.GracefulStop()
	}()
}

// Stop gracefully stops the server immediately.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
