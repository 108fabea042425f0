package convert

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/kbukum/faultkit/errors"
)

// ToPayload renders a business error as the client-facing body.
func ToPayload(fault *apperrors.BusinessError, path string) apperrors.ErrorPayload {
	return fault.ToPayload(path)
}

// ToHTTP returns the HTTP status and body for a business error.
func ToHTTP(fault *apperrors.BusinessError, path string) (int, apperrors.ErrorPayload) {
	return fault.HTTPStatus(), fault.ToPayload(path)
}

// ToGRPCStatus converts a business error to a gRPC status. The status
// description is detailOverride when non-empty, else the fault's message.
func ToGRPCStatus(fault *apperrors.BusinessError, detailOverride ...string) *status.Status {
	desc := fault.Message()
	if len(detailOverride) > 0 && detailOverride[0] != "" {
		desc = detailOverride[0]
	}
	return status.New(fault.GRPCCode(), desc)
}

// KindFromGRPCCode maps a gRPC code received from a peer back to a kind.
// The mapping is lossy: several kinds share one gRPC code and only the
// representative kind is recovered.
func KindFromGRPCCode(code codes.Code) apperrors.Kind {
	switch code {
	case codes.NotFound:
		return apperrors.KindEntityNotFound
	case codes.InvalidArgument:
		return apperrors.KindBadRequest
	case codes.Unauthenticated:
		return apperrors.KindUnauthorized
	case codes.PermissionDenied:
		return apperrors.KindForbidden
	case codes.Unavailable:
		return apperrors.KindExternalServiceError
	case codes.ResourceExhausted:
		return apperrors.KindRateLimitExceeded
	case codes.AlreadyExists:
		return apperrors.KindDuplicateEntry
	case codes.FailedPrecondition:
		return apperrors.KindBusinessRuleViolation
	case codes.Unimplemented:
		return apperrors.KindInvalidOperation
	default:
		return apperrors.KindInternal
	}
}

// FromGRPCError converts an error returned by a gRPC call into a business
// error. The remote description becomes the message; the original error is
// kept as the cause. Errors that carry no gRPC status are INTERNAL_SERVER_ERROR.
func FromGRPCError(err error) *apperrors.BusinessError {
	if err == nil {
		return nil
	}
	if be, ok := apperrors.As(err); ok {
		return be
	}

	st, ok := status.FromError(err)
	if !ok {
		return apperrors.Wrap(apperrors.KindInternal, "", err)
	}
	if st.Code() == codes.OK {
		return nil
	}
	return apperrors.Wrap(KindFromGRPCCode(st.Code()), st.Message(), err)
}
