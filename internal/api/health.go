package api

import (
	"context"
	"fmt"
	"net"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer exposes the gRPC health-checking service for deployment
// probes, separate from the dashboard HTTP surface.
type HealthServer struct {
	grpcServer *grpc.Server
	listener   net.Listener
	status     *health.Server
}

// NewHealthServer constructs a gRPC listener serving health and reflection.
func NewHealthServer(address string, opts ...grpc.ServerOption) (*HealthServer, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	grpc_prometheus.EnableHandlingTimeHistogram()
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(grpc_prometheus.UnaryServerInterceptor),
		grpc.ChainStreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	}
	serverOpts = append(serverOpts, opts...)
	grpcServer := grpc.NewServer(serverOpts...)

	statusSrv := health.NewServer()
	statusSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, statusSrv)
	grpc_prometheus.Register(grpcServer)

	// Reflection lets probe tooling discover the health service.
	reflection.Register(grpcServer)

	return &HealthServer{
		grpcServer: grpcServer,
		listener:   lis,
		status:     statusSrv,
	}, nil
}

// Start serves health checks until Shutdown is invoked.
func (s *HealthServer) Start() error {
	if s.grpcServer == nil || s.listener == nil {
		return fmt.Errorf("health server not initialised")
	}
	return s.grpcServer.Serve(s.listener)
}

// SetNotServing flips the probe status, used while draining.
func (s *HealthServer) SetNotServing() {
	if s.status != nil {
		s.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Shutdown attempts a graceful stop, falling back to a hard stop when the
// context expires.
func (s *HealthServer) Shutdown(ctx context.Context) {
	if s.grpcServer == nil {
		return
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.Stop()
	case <-stopped:
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *HealthServer) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
