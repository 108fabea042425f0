// Package interceptor provides gRPC interceptors for faultkit services.
//
// Server side, UnaryServerErrors and StreamServerErrors render handler
// errors and panics through a handler chain, and the rate limit
// interceptors apply the category buckets. Client side, UnaryClientRetry
// repeats calls under a retry policy, UnaryClientErrors converts failures to
// business errors and the logging interceptors record each call.
package interceptor
