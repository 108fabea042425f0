// Package server provides the HTTP server for faultkit services, using Gin
// with h2c so gRPC services can be mounted on the same port.
//
// ApplyMiddleware installs the standard stack (server/middleware): request
// ids, request logging, panic recovery, chain-rendered errors, body size
// limits and category rate limiting. Failures from any of them, and errors
// handlers attach with c.Error or pass to RespondWithError, are rendered by
// the same handler chain.
package server
