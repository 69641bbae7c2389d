package server

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the name the HTTP API reports under in gRPC health.
const HealthService = "proposal.v1.SessionAPI"

// GRPCHealth serves the standard gRPC health protocol alongside the HTTP
// API so orchestrators can probe either.
type GRPCHealth struct {
	srv    *grpc.Server
	hs     *health.Server
	logger *slog.Logger
}

func NewGRPCHealth(logger *slog.Logger) *GRPCHealth {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &GRPCHealth{srv: srv, hs: hs, logger: logger}
}

// SetServing flips the overall and API statuses.
func (g *GRPCHealth) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.hs.SetServingStatus("", st)
	g.hs.SetServingStatus(HealthService, st)
}

// Serve blocks until the listener fails or Stop is called.
func (g *GRPCHealth) Serve(lis net.Listener) error {
	g.logger.Info("grpc.health.serve", "addr", lis.Addr().String())
	return g.srv.Serve(lis)
}

// Stop marks everything not serving and stops gracefully, or immediately
// once ctx ends.
func (g *GRPCHealth) Stop(ctx context.Context) {
	g.hs.Shutdown()
	done := make(chan struct{})
	go func() { defer close(done); g.srv.GracefulStop() }()
	select {
	case <-done:
	case <-ctx.Done():
		g.srv.Stop()
	}
}
