package handler

import (
	apperrors "github.com/kbukum/faultkit/errors"
)

// HTTPResponse is a rendered failure for the request protocol.
type HTTPResponse struct {
	Status  int
	Payload apperrors.ErrorPayload
}

// RenderHTTP renders a resolution as a status code and payload.
func RenderHTTP(r Resolution, path string) HTTPResponse {
	payload := r.Fault.ToPayload(path)
	payload.Detail = r.Detail
	return HTTPResponse{Status: r.Fault.HTTPStatus(), Payload: payload}
}

// HTTPHandler turns a resolver into an HTTP chain handler.
func HTTPHandler(r Resolver) Handler[HTTPResponse] {
	return Handler[HTTPResponse]{
		Name:      r.Name,
		Priority:  r.Priority,
		CanHandle: r.CanHandle,
		Handle: func(err error, path string) (HTTPResponse, *apperrors.BusinessError) {
			res := r.Resolve(err)
			return RenderHTTP(res, path), res.Fault
		},
	}
}

// NewHTTPChain creates the HTTP chain with the built-in handlers: business,
// validation, data integrity, resilience and the catch-all.
func NewHTTPChain(opts ...Option) *Chain[HTTPResponse] {
	o := newOptions(opts)
	builtins := BuiltinResolvers()
	handlers := make([]Handler[HTTPResponse], 0, len(builtins))
	for _, r := range builtins {
		handlers = append(handlers, HTTPHandler(r))
	}
	catchAll := HTTPHandler(DefaultResolver(o.classifier, o.exposeDetail))
	return newChain(ProtocolHTTP, catchAll, handlers, o)
}
