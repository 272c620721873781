// Package health exposes the standard gRPC health service for the chat backend.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-checked service.
const ServiceName = "wordchat.Chat"

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

// NewServer creates a Server reporting NOT_SERVING until SetServing(true).
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{grpc: gs, health: hs, logger: logger}
	s.SetServing(false)
	return s
}

// SetServing updates the status of ServiceName and the server as a whole.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Serve accepts connections on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks the service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Watch runs checks every interval and flips the serving status to match.
// It returns when ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration, checks map[string]CheckFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := true
	s.SetServing(s.runChecks(ctx, checks, &last))
	for {
		select {
		case <-ticker.C:
			s.SetServing(s.runChecks(ctx, checks, &last))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) runChecks(ctx context.Context, checks map[string]CheckFunc, last *bool) bool {
	ok := true
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			ok = false
			if *last {
				s.logger.Warn("Health check failing", "check", name, "error", err)
			}
		}
	}
	if ok && !*last {
		s.logger.Info("Health checks recovered")
	}
	*last = ok
	return ok
}
