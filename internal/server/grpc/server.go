// Package grpc exposes services.ProfileService over the rpcx service
// descriptor together with the standard gRPC health service.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/rpcx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address string
	profile *services.ProfileService
	logger  logging.Logger
	health  *health.Server

	stopping chan struct{}
	stopOnce sync.Once
}

var _ rpcx.ProfileServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, ps *services.ProfileService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		profile:  ps,
		health:   health.NewServer(),
		stopping: make(chan struct{}),
	}
}

// NewServer builds a grpc.Server with the auth interceptors, the profile
// service and the health service registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.authUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.authStreamInterceptor),
	)
	srv := grpc.NewServer(opts...)

	rpcx.RegisterProfileServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(rpcx.ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return srv
}

// SetServing flips the health status reported for the profile service.
func (s *GRPCServer) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(rpcx.ServiceName, st)
}

// Stop ends open Subscribe streams so a graceful stop can complete.
func (s *GRPCServer) Stop() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		close(s.stopping)
	})
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.Stop()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
