// Package grpcserver exposes the order service over gRPC.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"matchcore/domain/orderbook"
	"matchcore/engine"
	"matchcore/infra/fanout"
	"matchcore/infra/queue"
	"matchcore/service"
)

// Server adapts OrderService to gRPC.
type Server struct {
	svc *service.OrderService
	top *fanout.Hub[engine.TopSnapshot]
	log *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewServer serves commands through svc. top feeds WatchTop and may be
// nil, in which case WatchTop is unimplemented.
func NewServer(svc *service.OrderService, top *fanout.Hub[engine.TopSnapshot], log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, top: top, log: log, done: make(chan struct{})}
}

// Close ends open WatchTop streams so a graceful stop does not wait on
// them.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

var _ BookServer = (*Server)(nil)

// -------------------- Commands --------------------

// PlaceOrder takes {"id","side":"buy"|"sell","type":"limit"|"market",
// "price","qty"}. Type defaults to limit.
func (s *Server) PlaceOrder(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	f := req.GetFields()
	id, err := uintField(f, "id")
	if err != nil {
		return nil, err
	}
	qty, err := uintField(f, "qty")
	if err != nil {
		return nil, err
	}
	side, err := sideField(f)
	if err != nil {
		return nil, err
	}

	switch typ := f["type"].GetStringValue(); typ {
	case "", "limit":
		err = s.svc.PlaceOrder(ctx, id, side, f["price"].GetNumberValue(), qty)
	case "market":
		err = s.svc.PlaceMarket(ctx, id, side, qty)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown order type %q", typ)
	}
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *wrapperspb.UInt64Value) (*emptypb.Empty, error) {
	if err := s.svc.CancelOrder(ctx, req.GetValue()); err != nil {
		return nil, s.toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// ModifyOrder takes {"id","qty"}.
func (s *Server) ModifyOrder(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	f := req.GetFields()
	id, err := uintField(f, "id")
	if err != nil {
		return nil, err
	}
	qty, err := uintField(f, "qty")
	if err != nil {
		return nil, err
	}
	if err := s.svc.ModifyOrder(ctx, id, qty); err != nil {
		return nil, s.toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// -------------------- Queries --------------------

func (s *Server) TopOfBook(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return snapshotStruct(s.svc.TopOfBook())
}

func (s *Server) Processed(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.UInt64Value, error) {
	return wrapperspb.UInt64(s.svc.Processed()), nil
}

// WatchTop streams the current snapshot followed by every new one until
// the client goes away.
func (s *Server) WatchTop(_ *emptypb.Empty, stream grpc.ServerStream) error {
	if s.top == nil {
		return status.Error(codes.Unimplemented, "top of book stream not configured")
	}
	sub := s.top.Subscribe(64)
	defer s.top.Unsubscribe(sub)

	if err := sendSnapshot(stream, s.svc.TopOfBook()); err != nil {
		return err
	}
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := sendSnapshot(stream, snap); err != nil {
				return err
			}
		}
	}
}

func sendSnapshot(stream grpc.ServerStream, snap engine.TopSnapshot) error {
	m, err := snapshotStruct(snap)
	if err != nil {
		return err
	}
	return stream.SendMsg(m)
}

// -------------------- Converters --------------------

func snapshotStruct(snap engine.TopSnapshot) (*structpb.Struct, error) {
	m, err := structpb.NewStruct(map[string]any{
		"symbol":   snap.Symbol,
		"best_bid": snap.BestBid,
		"best_ask": snap.BestAsk,
		"bid_qty":  float64(snap.BidQty),
		"ask_qty":  float64(snap.AskQty),
		"seq":      float64(snap.Seq),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return m, nil
}

// maxExact is the largest integer a protobuf number holds exactly.
const maxExact = 1 << 53

func uintField(f map[string]*structpb.Value, name string) (uint64, error) {
	v, ok := f[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing %q", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%q must be a number", name)
	}
	x := n.NumberValue
	if x < 0 || x > maxExact || x != math.Trunc(x) {
		return 0, status.Errorf(codes.InvalidArgument, "%q must be a whole number in [0, 2^53]", name)
	}
	return uint64(x), nil
}

func sideField(f map[string]*structpb.Value) (orderbook.Side, error) {
	switch s := f["side"].GetStringValue(); s {
	case "buy", "bid":
		return orderbook.Buy, nil
	case "sell", "ask":
		return orderbook.Sell, nil
	default:
		return 0, status.Errorf(codes.InvalidArgument, "unknown side %q", s)
	}
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, queue.ErrClosed):
		return status.Error(codes.Unavailable, "engine is not accepting orders")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.log.Error("grpc command failed", zap.Error(err))
		return status.Error(codes.Internal, fmt.Sprint(err))
	}
}
