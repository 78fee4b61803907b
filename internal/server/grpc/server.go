// Package grpc exposes the standard grpc.health.v1 service so orchestrators
// can check the metadata server over gRPC. Status follows the same check
// that backs /healthz.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/mediadrop/internal/logging"
)

const (
	DefaultCheckInterval = 5 * time.Second

	checkTimeout = 2 * time.Second
)

// HealthFunc reports whether the server's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

type GRPCServer struct {
	address  string
	logger   logging.Logger
	check    HealthFunc
	interval time.Duration
	health   *health.Server
}

// NewGRPCServer builds a health server on address. A nil check always
// reports SERVING; interval <= 0 uses DefaultCheckInterval.
func NewGRPCServer(a string, l logging.Logger, check HealthFunc, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		check:    check,
		interval: interval,
		health:   health.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.refresh(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs the check once and publishes the result for the overall
// server (the empty service name).
func (s *GRPCServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.check != nil {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.check(cctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}
