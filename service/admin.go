// Package service describes the operator Admin gRPC service. Requests and responses are
// protobuf well-known types, so the descriptor is written by hand and the default proto
// codec carries the messages.
package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const AdminServiceName = "vehicle_ledger.Admin"

// AdminServer is the server API for the Admin service.
type AdminServer interface {
	// Status reports node id, height, tail hash, vehicle and peer counts.
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// RegisterVehicle takes owner, license and port fields and returns whether the owner was new.
	RegisterVehicle(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	// CreateBlock mines on top of the tail and returns the block header.
	CreateBlock(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Synchronize pulls peer chains and returns the number of appended blocks.
	Synchronize(context.Context, *emptypb.Empty) (*wrapperspb.Int64Value, error)
	AddPeer(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	RemovePeer(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ListPeers(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SetTimeLimit(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

func fullMethod(name string) string {
	return "/" + AdminServiceName + "/" + name
}

func unary[Req any, Resp any](name string, call func(AdminServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(AdminServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AdminServiceDesc is the grpc.ServiceDesc for the Admin service.
var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Status", AdminServer.Status),
		unary("RegisterVehicle", AdminServer.RegisterVehicle),
		unary("CreateBlock", AdminServer.CreateBlock),
		unary("Synchronize", AdminServer.Synchronize),
		unary("AddPeer", AdminServer.AddPeer),
		unary("RemovePeer", AdminServer.RemovePeer),
		unary("ListPeers", AdminServer.ListPeers),
		unary("SetTimeLimit", AdminServer.SetTimeLimit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vehicle_ledger/admin",
}

func RegisterAdminServer(s grpc.ServiceRegistrar, srv AdminServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

// AdminClient is the client API for the Admin service.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) Status(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Status"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) RegisterVehicle(ctx context.Context, owner, license string, port int, opts ...grpc.CallOption) (bool, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"owner":   owner,
		"license": license,
		"port":    port,
	})
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("RegisterVehicle"), in, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *AdminClient) CreateBlock(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("CreateBlock"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) Synchronize(ctx context.Context, opts ...grpc.CallOption) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, fullMethod("Synchronize"), &emptypb.Empty{}, out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *AdminClient) AddPeer(ctx context.Context, addr string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("AddPeer"), wrapperspb.String(addr), new(emptypb.Empty), opts...)
}

func (c *AdminClient) RemovePeer(ctx context.Context, addr string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("RemovePeer"), wrapperspb.String(addr), new(emptypb.Empty), opts...)
}

func (c *AdminClient) ListPeers(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListPeers"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	peers := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		peers = append(peers, v.GetStringValue())
	}
	return peers, nil
}

func (c *AdminClient) SetTimeLimit(ctx context.Context, seconds int, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("SetTimeLimit"), wrapperspb.Int64(int64(seconds)), new(emptypb.Empty), opts...)
}
