package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service is described by hand over protobuf well-known types, so no
// generated code is needed on either side.
//
//	service Book {
//	  rpc PlaceOrder(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc CancelOrder(google.protobuf.UInt64Value) returns (google.protobuf.Empty);
//	  rpc ModifyOrder(google.protobuf.Struct) returns (google.protobuf.Empty);
//	  rpc TopOfBook(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc Processed(google.protobuf.Empty) returns (google.protobuf.UInt64Value);
//	  rpc WatchTop(google.protobuf.Empty) returns (stream google.protobuf.Struct);
//	}
const ServiceName = "matchcore.v1.Book"

type BookServer interface {
	PlaceOrder(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	CancelOrder(context.Context, *wrapperspb.UInt64Value) (*emptypb.Empty, error)
	ModifyOrder(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	TopOfBook(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Processed(context.Context, *emptypb.Empty) (*wrapperspb.UInt64Value, error)
	WatchTop(*emptypb.Empty, grpc.ServerStream) error
}

func Register(s grpc.ServiceRegistrar, srv BookServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: unary("PlaceOrder", BookServer.PlaceOrder)},
		{MethodName: "CancelOrder", Handler: unary("CancelOrder", BookServer.CancelOrder)},
		{MethodName: "ModifyOrder", Handler: unary("ModifyOrder", BookServer.ModifyOrder)},
		{MethodName: "TopOfBook", Handler: unary("TopOfBook", BookServer.TopOfBook)},
		{MethodName: "Processed", Handler: unary("Processed", BookServer.Processed)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchTop", Handler: watchTopHandler, ServerStreams: true},
	},
	Metadata: "matchcore/v1/book.proto",
}

func fullMethod(method string) string { return "/" + ServiceName + "/" + method }

// unary adapts a BookServer method expression to the grpc unary method handler signature.
func unary[In, Out any](method string, call func(BookServer, context.Context, *In) (*Out, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookServer), ctx, req.(*In))
		})
	}
}

func watchTopHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BookServer).WatchTop(in, stream)
}
