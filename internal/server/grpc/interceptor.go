package grpc

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/rpcx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type ctxKey string

const accountKey ctxKey = "account"

func accountFromContext(ctx context.Context) (*models.Account, bool) {
	acc, ok := ctx.Value(accountKey).(*models.Account)
	return acc, ok && acc != nil
}

// needsAuth reports whether method is a profile call other than Join.
func needsAuth(method string) bool {
	return strings.HasPrefix(method, "/"+rpcx.ServiceName+"/") && method != rpcx.MethodJoin
}

func authTokenFromContext(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthTokenHeaderName); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (s *GRPCServer) authenticate(ctx context.Context) (context.Context, error) {
	acc, err := s.profile.Authenticate(ctx, authTokenFromContext(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return context.WithValue(ctx, accountKey, acc), nil
}

func (s *GRPCServer) authUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !needsAuth(info.FullMethod) {
		return handler(ctx, req)
	}

	actx, err := s.authenticate(ctx)
	if err != nil {
		s.logger.Debug(ctx, "rejected call", "method", info.FullMethod)
		return nil, err
	}
	return handler(actx, req)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authedStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) authStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if !needsAuth(info.FullMethod) {
		return handler(srv, ss)
	}

	ctx, err := s.authenticate(ss.Context())
	if err != nil {
		s.logger.Debug(ss.Context(), "rejected stream", "method", info.FullMethod)
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}
