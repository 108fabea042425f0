package interceptor

import (
	"context"
	"strings"

	"google.golang.org/grpc"

	"github.com/kbukum/faultkit/resilience"
)

// MethodCategory picks the rate limit bucket for a full method name.
type MethodCategory func(fullMethod string) resilience.Category

// BatchMethods sends methods starting with one of prefixes to the batch
// bucket and everything else to the API bucket.
func BatchMethods(prefixes ...string) MethodCategory {
	return func(fullMethod string) resilience.Category {
		for _, p := range prefixes {
			if strings.HasPrefix(fullMethod, p) {
				return resilience.CategoryBatch
			}
		}
		return resilience.CategoryAPI
	}
}

func limiterFor(limiters *resilience.Limiters, category MethodCategory, method string) *resilience.RateLimiter {
	if category == nil {
		return limiters.API
	}
	return limiters.For(category(method))
}

// UnaryServerRateLimit takes one token per call and fails the call with
// RATE_LIMIT_EXCEEDED, rendered by chain, when none is left.
func UnaryServerRateLimit(limiters *resilience.Limiters, category MethodCategory, chain *GRPCChain) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (interface{}, error) {
		if err := limiterFor(limiters, category, info.FullMethod).Allow(); err != nil {
			return nil, chain.Dispatch(ctx, err, info.FullMethod).Err()
		}
		return h(ctx, req)
	}
}

// StreamServerRateLimit takes one token per stream.
func StreamServerRateLimit(limiters *resilience.Limiters, category MethodCategory, chain *GRPCChain) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, h grpc.StreamHandler) error {
		if err := limiterFor(limiters, category, info.FullMethod).Allow(); err != nil {
			return chain.Dispatch(ss.Context(), err, info.FullMethod).Err()
		}
		return h(srv, ss)
	}
}
