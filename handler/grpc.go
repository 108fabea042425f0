package handler

import (
	"google.golang.org/grpc/status"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
)

// validationPrefix starts the description of every gRPC validation failure.
const validationPrefix = "validation failed: "

// RenderGRPC renders a resolution as a gRPC status. The description is the
// detail when there is one, else the fault message.
func RenderGRPC(r Resolution) *status.Status {
	if r.Detail != nil {
		return convert.ToGRPCStatus(r.Fault, *r.Detail)
	}
	return convert.ToGRPCStatus(r.Fault)
}

// GRPCHandler turns a resolver into a gRPC chain handler.
func GRPCHandler(r Resolver) Handler[*status.Status] {
	return grpcHandler(r, RenderGRPC)
}

func grpcHandler(r Resolver, render func(Resolution) *status.Status) Handler[*status.Status] {
	return Handler[*status.Status]{
		Name:      r.Name,
		Priority:  r.Priority,
		CanHandle: r.CanHandle,
		Handle: func(err error, _ string) (*status.Status, *apperrors.BusinessError) {
			res := r.Resolve(err)
			return render(res), res.Fault
		},
	}
}

func renderGRPCValidation(r Resolution) *status.Status {
	desc := r.Fault.Message()
	if r.Detail != nil {
		desc = *r.Detail
	}
	return convert.ToGRPCStatus(r.Fault, validationPrefix+desc)
}

// NewGRPCChain creates the gRPC chain with the same built-in handlers as
// the HTTP chain. Validation failures are described as
// "validation failed: <fields>".
func NewGRPCChain(opts ...Option) *Chain[*status.Status] {
	o := newOptions(opts)
	var handlers []Handler[*status.Status]
	for _, r := range BuiltinResolvers() {
		if r.Name == NameValidation {
			handlers = append(handlers, grpcHandler(r, renderGRPCValidation))
			continue
		}
		handlers = append(handlers, GRPCHandler(r))
	}
	catchAll := GRPCHandler(DefaultResolver(o.classifier, o.exposeDetail))
	return newChain(ProtocolGRPC, catchAll, handlers, o)
}
