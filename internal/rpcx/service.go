package rpcx

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "profilekeeper.v1.ProfileService"

const (
	MethodJoin         = "/" + ServiceName + "/Join"
	MethodAuth         = "/" + ServiceName + "/Auth"
	MethodPushRecord   = "/" + ServiceName + "/PushRecord"
	MethodDeleteRecord = "/" + ServiceName + "/DeleteRecord"
	MethodSubscribe    = "/" + ServiceName + "/Subscribe"
)

// SubscribeStream is the server side of a Subscribe call.
type SubscribeStream interface {
	Send(*structpb.Struct) error
	SendHeader(metadata.MD) error
	Context() context.Context
}

// ProfileServer is implemented by the server.
type ProfileServer interface {
	Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Auth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	PushRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Subscribe(in *structpb.Struct, stream SubscribeStream) error
}

type unaryCall func(srv ProfileServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ProfileServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ProfileServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type subscribeServerStream struct {
	grpc.ServerStream
}

func (s *subscribeServerStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ProfileServer).Subscribe(in, &subscribeServerStream{stream})
}

// ServiceDesc is registered with grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: unaryHandler(MethodJoin, ProfileServer.Join)},
		{MethodName: "Auth", Handler: unaryHandler(MethodAuth, ProfileServer.Auth)},
		{MethodName: "PushRecord", Handler: unaryHandler(MethodPushRecord, ProfileServer.PushRecord)},
		{MethodName: "DeleteRecord", Handler: unaryHandler(MethodDeleteRecord, ProfileServer.DeleteRecord)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
}

// SubscribeStreamDesc is the client-side descriptor for Subscribe.
var SubscribeStreamDesc = &ServiceDesc.Streams[0]

// RegisterProfileServer registers srv on s.
func RegisterProfileServer(s grpc.ServiceRegistrar, srv ProfileServer) {
	s.RegisterService(&ServiceDesc, srv)
}
