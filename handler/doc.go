// Package handler dispatches arbitrary failures to exactly one of an ordered
// set of handlers and renders the result for a protocol.
//
// Resolvers decide which business error a failure represents. They are
// shared by every protocol; a chain only adds the rendering step, so HTTP
// and gRPC report the same failure with the same kind and code.
//
//	chain := handler.NewHTTPChain(handler.WithLogger(log))
//	resp := chain.Dispatch(ctx, err, c.Request.URL.Path)
//	c.JSON(resp.Status, resp.Payload)
package handler
