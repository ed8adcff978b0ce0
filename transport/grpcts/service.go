package grpcts

import (
	"context"

	"github.com/asyncps/psengine/transport"
	"google.golang.org/grpc"
)

// serviceName matches what a generated scheduler.proto service would have
// used; it only needs to be unique on the wire, there is no .proto file
// behind it in this environment.
const serviceName = "psengine.Transport"

// transportServer is the interface the hand-written ServiceDesc below
// dispatches to — the equivalent of a generated *_grpc.pb.go server
// interface, implemented by *Server.
type transportServer interface {
	Exchange(ctx context.Context, frame *transport.Frame) (*transport.Frame, error)
}

func exchangeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(transport.Frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(transportServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Exchange"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(transportServer).Exchange(ctx, req.(*transport.Frame))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is the hand-registered equivalent of what protoc-gen-go-grpc
// would emit for a service with a single `rpc Exchange(Frame) returns
// (Frame)` method, per DESIGN.md.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*transportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Exchange", Handler: exchangeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transport.proto",
}

// exchangeClient issues the Exchange RPC against conn using the gob
// content subtype so the registered codec above handles marshaling.
func exchangeClient(ctx context.Context, conn grpc.ClientConnInterface, frame transport.Frame) (transport.Frame, error) {
	out := new(transport.Frame)
	err := conn.Invoke(ctx, "/"+serviceName+"/Exchange", &frame, out, grpc.CallContentSubtype(codecName))
	if err != nil {
		return transport.Frame{}, err
	}
	return *out, nil
}
