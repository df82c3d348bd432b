package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/rpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type authKey struct{}

// WithAuth attaches an auth token to ctx. It takes precedence over the token
// set with SetAuth for calls made with that context.
func WithAuth(ctx context.Context, auth string) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	health      healthpb.HealthClient

	mu   sync.RWMutex
	auth string
}

func withAuthToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthTokenHeaderName)
	md.Set(common.AuthTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokenFor(ctx context.Context) string {
	if tok, ok := ctx.Value(authKey{}).(string); ok && tok != "" {
		return tok
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

func (s *GRPCClient) authUnaryInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if tok := s.tokenFor(ctx); tok != "" {
		ctx = withAuthToken(ctx, tok)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *GRPCClient) authStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if tok := s.tokenFor(ctx); tok != "" {
		ctx = withAuthToken(ctx, tok)
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// NewGRPCClient creates a client for endpointURL. Extra dial options are
// appended after the defaults.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.authUnaryInterceptor),
		grpc.WithStreamInterceptor(c.authStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

func (s *GRPCClient) SetAuth(auth string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

func (s *GRPCClient) ClearAuth() {
	s.SetAuth("")
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Join(ctx context.Context, auth string) (*models.User, error) {
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpcx.MethodJoin, rpcx.JoinRequest(auth), out); err != nil {
		return nil, s.mapError(err)
	}

	acc, err := rpcx.AccountFromStruct(out)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: acc.ID, LastMod: acc.LastMod, Settings: models.NewSettings()}, nil
}

func (s *GRPCClient) TestAuth(ctx context.Context) error {
	if s.tokenFor(ctx) == "" {
		return ErrNotAuthorized
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpcx.MethodAuth, rpcx.Empty(), out); err != nil {
		return s.mapError(err)
	}
	return nil
}

// FetchUser confirms the auth token and returns the account's user record as
// stored on the server. Body is empty until the first push.
func (s *GRPCClient) FetchUser(ctx context.Context) (*models.SyncRecord, error) {
	if s.tokenFor(ctx) == "" {
		return nil, ErrNotAuthorized
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpcx.MethodAuth, rpcx.Empty(), out); err != nil {
		return nil, s.mapError(err)
	}

	acc, err := rpcx.AccountFromStruct(out)
	if err != nil {
		return nil, err
	}
	return &models.SyncRecord{
		ID:      acc.ID,
		CID:     acc.CID,
		Type:    common.UserRecordType,
		Body:    acc.Body,
		LastMod: acc.LastMod,
	}, nil
}

func (s *GRPCClient) PushRecord(ctx context.Context, rec models.SyncRecord) (*models.SyncRecord, error) {
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpcx.MethodPushRecord, toWire(rec).Struct(), out); err != nil {
		return nil, s.mapError(err)
	}

	r, err := rpcx.RecordFromStruct(out)
	if err != nil {
		return nil, err
	}
	res := fromWire(r)
	return &res, nil
}

func (s *GRPCClient) DeleteRecord(ctx context.Context, recordType, id string) error {
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, rpcx.MethodDeleteRecord, rpcx.DeleteRequest(recordType, id), out); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Subscribe opens the broadcast stream. A positive since asks the server to
// replay records changed after it first. The returned channel is closed when
// the stream ends or ctx is done.
func (s *GRPCClient) Subscribe(ctx context.Context, since int64) (<-chan models.SyncRecord, error) {
	stream, err := s.conn.NewStream(ctx, rpcx.SubscribeStreamDesc, rpcx.MethodSubscribe)
	if err != nil {
		return nil, s.mapError(err)
	}
	if err := stream.SendMsg(rpcx.SubscribeRequest(since)); err != nil {
		return nil, s.mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, s.mapError(err)
	}

	// the server sends headers once the subscription is registered; a
	// rejected call ends without them and RecvMsg reports the status
	md, err := stream.Header()
	if err != nil {
		return nil, s.mapError(err)
	}
	if md == nil {
		err := stream.RecvMsg(new(structpb.Struct))
		if err == nil {
			err = io.EOF
		}
		return nil, s.mapError(err)
	}

	ch := make(chan models.SyncRecord)
	go func() {
		defer close(ch)
		for {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return
			}
			r, err := rpcx.RecordFromStruct(in)
			if err != nil {
				continue
			}
			select {
			case ch <- fromWire(r):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpcx.ServiceName})
	if err != nil {
		return s.mapError(err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return ErrUnavailable
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func toWire(r models.SyncRecord) rpcx.Record {
	return rpcx.Record{ID: r.ID, CID: r.CID, Type: r.Type, Body: r.Body, LastMod: r.LastMod, Deleted: r.Deleted}
}

func fromWire(r rpcx.Record) models.SyncRecord {
	return models.SyncRecord{ID: r.ID, CID: r.CID, Type: r.Type, Body: r.Body, LastMod: r.LastMod, Deleted: r.Deleted}
}
