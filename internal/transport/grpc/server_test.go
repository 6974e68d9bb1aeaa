package grpcx

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type flakyStore struct{ down atomic.Bool }

func (f *flakyStore) Ping(context.Context) error {
	if f.down.Load() {
		return errors.New("down")
	}
	return nil
}

func startServer(t *testing.T, probe Pinger) (healthpb.HealthClient, context.CancelFunc, <-chan error) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(lis.Addr().String(), probe, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn), cancel, done
}

func statusOf(t *testing.T, c healthpb.HealthClient, svc string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsStoreProbe(t *testing.T) {
	t.Parallel()
	store := &flakyStore{}
	client, cancel, done := startServer(t, store)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, statusOf(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, statusOf(t, client, ServiceName))

	store.down.Store(true)
	assert.Eventually(t, func() bool {
		return statusOf(t, client, ServiceName) == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	store.down.Store(false)
	assert.Eventually(t, func() bool {
		return statusOf(t, client, ServiceName) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestUnknownServiceIsNotFound(t *testing.T) {
	t.Parallel()
	client, cancel, done := startServer(t, nil)
	defer func() {
		cancel()
		<-done
	}()

	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUnaryInterceptorRecoversPanics(t *testing.T) {
	t.Parallel()
	intercept := UnaryServerInterceptor()
	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req any) (any, error) {
			panic("boom")
		})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestUnaryInterceptorAddsDeadline(t *testing.T) {
	t.Parallel()
	intercept := UnaryServerInterceptor()
	_, err := intercept(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(ctx context.Context, req any) (any, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil, nil
		})
	assert.NoError(t, err)
}
