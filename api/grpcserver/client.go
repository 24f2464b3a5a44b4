package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a thin client for the Book service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) PlaceOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("PlaceOrder"), req, new(emptypb.Empty), opts...)
}

func (c *Client) CancelOrder(ctx context.Context, id uint64, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("CancelOrder"), wrapperspb.UInt64(id), new(emptypb.Empty), opts...)
}

func (c *Client) ModifyOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("ModifyOrder"), req, new(emptypb.Empty), opts...)
}

func (c *Client) TopOfBook(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("TopOfBook"), new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Processed(ctx context.Context, opts ...grpc.CallOption) (uint64, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, fullMethod("Processed"), new(emptypb.Empty), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// TopStream yields snapshots from WatchTop.
type TopStream struct {
	stream grpc.ClientStream
}

func (s *TopStream) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) WatchTop(ctx context.Context, opts ...grpc.CallOption) (*TopStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchTop"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &TopStream{stream: stream}, nil
}
