package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/kbukum/faultkit/resilience"
)

// UnaryClientRetry repeats unary calls under policy. Each attempt gets its
// own attemptTimeout when positive. A nil policy.Retryable retries network
// failures and the retryable gRPC codes.
func UnaryClientRetry(policy resilience.Policy, attemptTimeout time.Duration) grpc.UnaryClientInterceptor {
	if policy.Retryable == nil {
		policy.Retryable = resilience.IsNetworkError
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return resilience.RetryFunc(ctx, policy, func() error {
			attemptCtx := ctx
			if attemptTimeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, attemptTimeout)
				defer cancel()
			}
			return invoker(attemptCtx, method, req, reply, cc, opts...)
		})
	}
}
