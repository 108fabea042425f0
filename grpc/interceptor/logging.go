package interceptor

import (
	"context"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/kbukum/faultkit/logger"
)

// UnaryClientLogging logs each call with method, duration and status code.
// Failed calls are logged at warn level; the caller decides whether the
// failure is an error.
func UnaryClientLogging(log *logger.Logger) grpc.UnaryClientInterceptor {
	log = log.WithComponent("grpc-client")
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		logCall(ctx, log, "gRPC call", method, cc.Target(), start, err)
		return err
	}
}

// StreamClientLogging logs stream establishment.
func StreamClientLogging(log *logger.Logger) grpc.StreamClientInterceptor {
	log = log.WithComponent("grpc-client")
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		start := time.Now()
		stream, err := streamer(ctx, desc, cc, method, opts...)
		logCall(ctx, log, "gRPC stream", method, cc.Target(), start, err)
		return stream, err
	}
}

func logCall(ctx context.Context, log *logger.Logger, what, method, target string, start time.Time, err error) {
	fields := map[string]interface{}{
		"service":     path.Dir(method)[1:],
		"method":      path.Base(method),
		"target":      target,
		"duration_ms": time.Since(start).Milliseconds(),
		"status":      status.Code(err).String(),
	}
	l := log.WithContext(ctx)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.Warn(what+" failed", fields)
		return
	}
	l.Debug(what+" completed", fields)
}
