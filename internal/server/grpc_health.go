package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"policyrag/internal/logger"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "policyrag"

// GRPCHealth serves the standard grpc.health.v1 service so orchestrators can
// probe readiness. It starts NOT_SERVING until ingestion finishes.
type GRPCHealth struct {
	server *grpc.Server
	health *health.Server
	log    *logger.Logger
}

func NewGRPCHealth(log *logger.Logger) *GRPCHealth {
	if log == nil {
		log = logger.Nop()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Register reflection service for grpcurl/grpcui
	reflection.Register(srv)

	g := &GRPCHealth{server: srv, health: hs, log: log.Component("grpc_health")}
	g.SetServing(false)
	return g
}

// SetServing updates the reported status for both the overall server and ServiceName.
func (g *GRPCHealth) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// ListenAndServe listens on addr and blocks until Stop.
func (g *GRPCHealth) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc health listen: %w", err)
	}
	return g.Serve(lis)
}

// Serve blocks serving lis until Stop.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	g.log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server listening")
	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server failed: %w", err)
	}
	return nil
}

// Stop reports NOT_SERVING and stops the server gracefully.
func (g *GRPCHealth) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
