// Package grpc holds gRPC configuration and client-side error conversion
// for faultkit services.
//
// The grpc/interceptor sub-package renders server failures through a
// handler chain, applies category rate limits and retries client calls.
// The grpc/client sub-package dials connections with those interceptors
// installed.
package grpc
