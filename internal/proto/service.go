// Package proto describes the kitkeeper.v1.KitService wire contract.
//
// Messages travel as google.protobuf.Struct, so the service is registered
// from a hand-written grpc.ServiceDesc and no protoc step is needed. The
// typed request and response helpers in messages.go convert to and from
// the Struct form.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "kitkeeper.v1.KitService"

// Full method names, as seen by interceptors.
const (
	KitService_Claim_FullMethodName    = "/" + ServiceName + "/Claim"
	KitService_ListKits_FullMethodName = "/" + ServiceName + "/ListKits"
	KitService_Admin_FullMethodName    = "/" + ServiceName + "/Admin"
)

// KitServiceServer is the server API for KitService.
type KitServiceServer interface {
	Claim(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListKits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Admin(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(KitServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(KitServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// KitService_ServiceDesc is the grpc.ServiceDesc for KitService.
var KitService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KitServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Claim", Handler: unaryHandler(KitService_Claim_FullMethodName, KitServiceServer.Claim)},
		{MethodName: "ListKits", Handler: unaryHandler(KitService_ListKits_FullMethodName, KitServiceServer.ListKits)},
		{MethodName: "Admin", Handler: unaryHandler(KitService_Admin_FullMethodName, KitServiceServer.Admin)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kitkeeper/v1/kits.proto",
}

func RegisterKitServiceServer(s grpc.ServiceRegistrar, srv KitServiceServer) {
	s.RegisterService(&KitService_ServiceDesc, srv)
}

// KitServiceClient is the client API for KitService.
type KitServiceClient interface {
	Claim(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListKits(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Admin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type kitServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewKitServiceClient(cc grpc.ClientConnInterface) KitServiceClient {
	return &kitServiceClient{cc}
}

func (c *kitServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kitServiceClient) Claim(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, KitService_Claim_FullMethodName, in, opts)
}

func (c *kitServiceClient) ListKits(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, KitService_ListKits_FullMethodName, in, opts)
}

func (c *kitServiceClient) Admin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, KitService_Admin_FullMethodName, in, opts)
}
