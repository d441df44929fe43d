package grpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	// LivenessService is SERVING while the process runs
	LivenessService = "liveness"
	// ReadinessService is SERVING while the anchor store answers and the chain is reachable
	ReadinessService = "readiness"
)

// Checker is what readiness depends on; *core.Service implements it
type Checker interface {
	StoreStatus(ctx context.Context) error
	ChainStatus(ctx context.Context) bool
}

// Server exposes the standard gRPC health service for the gateway
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checker    Checker
	interval   time.Duration
	logger     *zap.SugaredLogger
}

// NewServer creates a new gRPC Server instance. Readiness is re-evaluated every interval.
func NewServer(checker Checker, interval time.Duration, l *zap.SugaredLogger) *Server {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	healthServer.SetServingStatus(LivenessService, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ReadinessService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		checker:    checker,
		interval:   interval,
		logger:     l,
	}
}

// Serve blocks serving lis until Stop
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go s.watchReadiness(ctx)
	s.logger.Infof("gRPC health server listening on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// UpdateReadiness evaluates readiness once. Only the anchor store gates it.
func (s *Server) UpdateReadiness(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.StoreStatus(ctx); err != nil {
		s.logger.Warnf("Readiness: anchor store unavailable: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	} else if !s.checker.ChainStatus(ctx) {
		// Requests are still accepted; only their anchoring waits
		s.logger.Warn("Readiness: ledger unreachable, anchoring is delayed")
	}
	s.health.SetServingStatus(ReadinessService, status)
	return status
}

func (s *Server) watchReadiness(ctx context.Context) {
	s.UpdateReadiness(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.UpdateReadiness(ctx)
		}
	}
}

// Stop marks everything NOT_SERVING and drains in-flight calls
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
