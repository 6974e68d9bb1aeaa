// Package grpcx exposes the operational gRPC surface: the standard health
// service, backed by a store probe.
package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health key for the room coordinator. The empty key
// reports overall server health.
const ServiceName = "codesync.v1.Coordinator"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
	probe  Pinger
	every  time.Duration
}

func NewServer(addr string, probe Pinger, probeEvery time.Duration) *Server {
	if probeEvery <= 0 {
		probeEvery = 10 * time.Second
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		addr:   addr,
		grpc:   gs,
		health: hs,
		probe:  probe,
		every:  probeEvery,
	}
}

// Health exposes the underlying health server, mainly for tests.
func (s *Server) Health() *health.Server { return s.health }

// Run listens on addr and serves until ctx is done. Before stopping it flips
// every service to NOT_SERVING so load balancers drain first.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.check(ctx)
	go s.probeLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("grpc listening", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *Server) check(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.probe.Ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("store probe failed", "err", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
