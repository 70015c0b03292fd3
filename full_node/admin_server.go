package full_node

import (
	"context"
	"errors"

	"github.com/Luismorlan/vehicle_ledger/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AdminServer serves the operator Admin service on top of a FullNodeServer.
type AdminServer struct {
	sev *FullNodeServer
	// Called after a vehicle is registered, typically to start its reporter.
	onRegister func(owner, license string)
}

var _ service.AdminServer = (*AdminServer)(nil)

type AdminOption func(*AdminServer)

// WithRegisterHook runs fn for every vehicle newly registered through the service.
func WithRegisterHook(fn func(owner, license string)) AdminOption {
	return func(a *AdminServer) {
		a.onRegister = fn
	}
}

func NewAdminServer(sev *FullNodeServer, opts ...AdminOption) *AdminServer {
	a := &AdminServer{sev: sev}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AdminServer) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	node := a.sev.FullNode()
	tail := node.Tail()
	return structpb.NewStruct(map[string]interface{}{
		"id":       node.ID(),
		"height":   node.Height(),
		"tail":     tail.Hash,
		"vehicles": len(node.Vehicles()),
		"peers":    len(a.sev.Peers()),
	})
}

func (a *AdminServer) RegisterVehicle(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	fields := req.GetFields()
	owner := fields["owner"].GetStringValue()
	license := fields["license"].GetStringValue()
	port := int(fields["port"].GetNumberValue())
	if owner == "" || license == "" {
		return nil, status.Error(codes.InvalidArgument, "owner and license are required")
	}
	ok := a.sev.FullNode().RegisterVehicle(owner, license, port)
	if ok && a.onRegister != nil {
		a.onRegister(owner, license)
	}
	return wrapperspb.Bool(ok), nil
}

func (a *AdminServer) CreateBlock(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	b, err := a.sev.Mine(ctx)
	if errors.Is(err, ErrBlockRejected) {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return structpb.NewStruct(map[string]interface{}{
		"index":         b.Index,
		"previous_hash": b.PrevHash,
		"timestamp":     b.Timestamp,
		"nonce":         b.Nonce,
		"hash":          b.Hash,
		"vehicles":      len(b.Vehicles),
	})
}

func (a *AdminServer) Synchronize(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int64Value, error) {
	n, err := a.sev.SynchronizeChain(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return wrapperspb.Int64(int64(n)), nil
}

func (a *AdminServer) AddPeer(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "peer address is required")
	}
	a.sev.AddPeer(req.GetValue())
	return &emptypb.Empty{}, nil
}

func (a *AdminServer) RemovePeer(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	a.sev.RemovePeer(req.GetValue())
	return &emptypb.Empty{}, nil
}

func (a *AdminServer) ListPeers(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	peers := a.sev.Peers()
	values := make([]interface{}, len(peers))
	for i, p := range peers {
		values[i] = p
	}
	return structpb.NewList(values)
}

func (a *AdminServer) SetTimeLimit(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if req.GetValue() < 0 {
		return nil, status.Error(codes.InvalidArgument, "time limit must not be negative")
	}
	a.sev.FullNode().SetTimeLimit(int(req.GetValue()))
	return &emptypb.Empty{}, nil
}
