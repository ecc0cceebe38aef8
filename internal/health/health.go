// Package health serves the standard gRPC health protocol so orchestrators
// can probe the service without speaking its HTTP API.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service names reported by the health server. The empty name is the
// process as a whole.
const (
	ServiceOverall = ""
	ServiceStore   = "valentine.v1.ResponseStore"
)

const (
	defaultInterval = 30 * time.Second
	pingTimeout     = 5 * time.Second
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is a gRPC server carrying only the health service.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	db       Pinger
	interval time.Duration
}

// New creates a health server. db may be nil when the store is disabled,
// in which case the store service is reported as serving.
func New(db Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		db:       db,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceOverall, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceStore, healthpb.HealthCheckResponse_UNKNOWN)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Monitor checks the store immediately and then every interval until ctx
// is done.
func (s *Server) Monitor(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ticker.C:
			s.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := s.db.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("Health monitor: store unreachable", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceStore, status)
}

// Stop marks every service as not serving and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
