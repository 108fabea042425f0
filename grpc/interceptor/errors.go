package interceptor

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/kbukum/faultkit/handler"
	grpcx "github.com/kbukum/faultkit/grpc"
)

// GRPCChain is the chain the server interceptors render failures with.
type GRPCChain = handler.Chain[*status.Status]

// UnaryServerErrors renders handler errors and panics through chain.
// Errors that already carry a gRPC status are returned unchanged.
func UnaryServerErrors(chain *GRPCChain) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				resp = nil
				err = chain.Dispatch(ctx, &handler.PanicError{Value: r}, info.FullMethod).Err()
			}
		}()

		resp, err = h(ctx, req)
		if err != nil {
			err = render(ctx, chain, err, info.FullMethod)
		}
		return resp, err
	}
}

// StreamServerErrors is UnaryServerErrors for streaming RPCs.
func StreamServerErrors(chain *GRPCChain) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, h grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = chain.Dispatch(ss.Context(), &handler.PanicError{Value: r}, info.FullMethod).Err()
			}
		}()

		if err = h(srv, ss); err != nil {
			err = render(ss.Context(), chain, err, info.FullMethod)
		}
		return err
	}
}

// grpcStatus is implemented by errors created with the status package.
type grpcStatus interface {
	GRPCStatus() *status.Status
}

// render passes through errors that are a gRPC status themselves. A status
// wrapped by another error is a downstream failure and goes through chain
// like any other.
func render(ctx context.Context, chain *GRPCChain, err error, method string) error {
	if _, ok := err.(grpcStatus); ok {
		return err
	}
	return chain.Dispatch(ctx, err, method).Err()
}

// UnaryClientErrors converts errors returned by calls to service into
// business errors with grpc.FromGRPC.
func UnaryClientErrors(service string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if err := invoker(ctx, method, req, reply, cc, opts...); err != nil {
			return grpcx.FromGRPC(err, service)
		}
		return nil
	}
}
