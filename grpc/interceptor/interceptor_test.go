package interceptor_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/grpc/interceptor"
	"github.com/kbukum/faultkit/handler"
	"github.com/kbukum/faultkit/logger"
	"github.com/kbukum/faultkit/resilience"
	"github.com/kbukum/faultkit/validation"
)

var quiet = logger.NewWithWriter(io.Discard, &logger.Config{Level: "debug", Format: "json"}, "test")

// faultyHealth fails Check and Watch according to the requested service.
type faultyHealth struct {
	healthpb.UnimplementedHealthServer
	flaky    atomic.Int32
	failures atomic.Int32
}

func (h *faultyHealth) fail(service string) error {
	switch service {
	case "missing":
		return apperrors.New(apperrors.KindEntityNotFound)
	case "panic":
		panic("boom")
	case "explicit":
		return status.Error(codes.Aborted, "explicit status")
	case "wrapped":
		return fmt.Errorf("load user 42 from users-db: %w",
			status.Error(codes.Unavailable, "dial tcp 10.0.0.7:5432: connection refused"))
	case "validation":
		return validation.New().Required("name", "").Err()
	case "duplicate":
		return &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	case "flaky":
		if h.flaky.Add(1) <= h.failures.Load() {
			return status.Error(codes.Unavailable, "warming up")
		}
	case "slow":
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func (h *faultyHealth) Check(_ context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := h.fail(req.GetService()); err != nil {
		return nil, err
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func (h *faultyHealth) Watch(req *healthpb.HealthCheckRequest, stream healthpb.Health_WatchServer) error {
	if err := h.fail(req.GetService()); err != nil {
		return err
	}
	return stream.Send(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
}

type harness struct {
	svc    *faultyHealth
	client healthpb.HealthClient
}

func start(t *testing.T, serverOpts []grpc.ServerOption, dialOpts ...grpc.DialOption) *harness {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(serverOpts...)
	svc := &faultyHealth{}
	svc.failures.Store(2)
	healthpb.RegisterHealthServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	opts := append([]grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, dialOpts...)
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{svc: svc, client: healthpb.NewHealthClient(conn)}
}

func serverWithErrors() []grpc.ServerOption {
	chain := handler.NewGRPCChain(handler.WithLogger(quiet))
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(interceptor.UnaryServerErrors(chain)),
		grpc.ChainStreamInterceptor(interceptor.StreamServerErrors(chain)),
	}
}

func TestUnaryServerErrors(t *testing.T) {
	h := start(t, serverWithErrors())

	tests := []struct {
		service string
		code    codes.Code
		desc    string
	}{
		{"missing", codes.NotFound, apperrors.KindEntityNotFound.DefaultMessage()},
		{"panic", codes.Internal, apperrors.KindInternal.DefaultMessage()},
		{"explicit", codes.Aborted, "explicit status"},
		{"wrapped", codes.Internal, apperrors.KindInternal.DefaultMessage()},
		{"validation", codes.InvalidArgument, "validation failed: name: is required"},
		{"duplicate", codes.AlreadyExists, apperrors.KindDuplicateEntry.DefaultMessage()},
		{"ok", codes.OK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: tt.service})
			st := status.Convert(err)
			assert.Equal(t, tt.code, st.Code())
			assert.Equal(t, tt.desc, st.Message())
		})
	}
}

func TestUnaryServerErrors_WrappedStatusIsDispatched(t *testing.T) {
	var buf syncBuffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json"}, "test")
	chain := handler.NewGRPCChain(handler.WithLogger(log))
	h := start(t, []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptor.UnaryServerErrors(chain))})

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "wrapped"})
	st := status.Convert(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.NotContains(t, st.Message(), "10.0.0.7")

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"handler":"default"`), "log: %s", out)
	assert.Contains(t, out, `"level":"error"`)
}

func TestStreamServerErrors(t *testing.T) {
	h := start(t, serverWithErrors())

	for service, code := range map[string]codes.Code{
		"missing": codes.NotFound,
		"panic":   codes.Internal,
	} {
		stream, err := h.client.Watch(context.Background(), &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, code, status.Code(err), service)
	}
}

func TestServerRateLimit(t *testing.T) {
	chain := handler.NewGRPCChain(handler.WithLogger(quiet))
	limiters := resilience.NewLimiters(
		resilience.RateLimiterConfig{Name: "api", Capacity: 1, RefillDuration: time.Hour},
		resilience.RateLimiterConfig{Name: "batch", Capacity: 1, RefillDuration: time.Hour},
	)
	category := interceptor.BatchMethods("/grpc.health.v1.Health/Watch")
	h := start(t, []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(interceptor.UnaryServerRateLimit(limiters, category, chain)),
		grpc.ChainStreamInterceptor(interceptor.StreamServerRateLimit(limiters, category, chain)),
	})

	ctx := context.Background()
	_, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	_, err = h.client.Check(ctx, &healthpb.HealthCheckRequest{})
	st := status.Convert(err)
	assert.Equal(t, codes.ResourceExhausted, st.Code())
	assert.Equal(t, apperrors.KindRateLimitExceeded.DefaultMessage(), st.Message())

	// Watch is limited by the batch bucket, which is still full.
	stream, err := h.client.Watch(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)
}

func TestBatchMethods(t *testing.T) {
	category := interceptor.BatchMethods("/reports.v1.Reports/")
	assert.Equal(t, resilience.CategoryBatch, category("/reports.v1.Reports/Export"))
	assert.Equal(t, resilience.CategoryAPI, category("/games.v1.Games/Get"))
}

func TestUnaryClientRetry(t *testing.T) {
	var retries int
	policy := resilience.NetworkPolicy()
	policy.MaxAttempts = 3
	policy.InitialDelay = time.Millisecond
	policy.OnRetry = func(int, error, time.Duration) { retries++ }

	h := start(t, nil, grpc.WithChainUnaryInterceptor(interceptor.UnaryClientRetry(policy, 0)))

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "flaky"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), h.svc.flaky.Load())
	assert.Equal(t, 2, retries)
}

func TestUnaryClientRetry_NonRetryable(t *testing.T) {
	var calls int
	policy := resilience.NetworkPolicy()
	policy.InitialDelay = time.Millisecond
	policy.OnRetry = func(int, error, time.Duration) { calls++ }
	h := start(t, serverWithErrors(), grpc.WithChainUnaryInterceptor(interceptor.UnaryClientRetry(policy, 0)))

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Zero(t, calls)
}

func TestUnaryClientRetry_Exhausted(t *testing.T) {
	policy := resilience.Policy{Name: "tight", MaxAttempts: 2, InitialDelay: time.Millisecond}
	h := start(t, nil, grpc.WithChainUnaryInterceptor(
		interceptor.UnaryClientErrors("health"),
		interceptor.UnaryClientRetry(policy, 0),
	))
	h.svc.failures.Store(10)

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "flaky"})
	require.Error(t, err)

	var exhausted *resilience.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.True(t, apperrors.Is(err, apperrors.KindExternalServiceError))
	assert.Contains(t, err.Error(), "health")
}

func TestUnaryClientRetry_AttemptTimeout(t *testing.T) {
	policy := resilience.Policy{Name: "slow", MaxAttempts: 2, InitialDelay: time.Millisecond}
	h := start(t, nil, grpc.WithChainUnaryInterceptor(interceptor.UnaryClientRetry(policy, 10*time.Millisecond)))

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "slow"})
	var exhausted *resilience.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestUnaryClientErrors(t *testing.T) {
	h := start(t, serverWithErrors(), grpc.WithChainUnaryInterceptor(interceptor.UnaryClientErrors("health")))

	_, err := h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "missing"})
	fault, ok := apperrors.As(err)
	require.True(t, ok, "expected a business error, got %T", err)
	assert.Equal(t, apperrors.KindEntityNotFound, fault.Kind())

	_, err = h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "ok"})
	assert.NoError(t, err)
}

func TestUnaryClientLogging(t *testing.T) {
	var buf syncBuffer
	log := logger.NewWithWriter(&buf, &logger.Config{Level: "debug", Format: "json"}, "test")
	h := start(t, serverWithErrors(), grpc.WithChainUnaryInterceptor(interceptor.UnaryClientLogging(log)))

	_, _ = h.client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "missing"})
	out := buf.String()
	assert.Contains(t, out, `"status":"NotFound"`)
	assert.Contains(t, out, `"method":"Check"`)
	assert.Contains(t, out, `"level":"warn"`)
}
