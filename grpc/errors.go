package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kbukum/faultkit/convert"
	apperrors "github.com/kbukum/faultkit/errors"
	"github.com/kbukum/faultkit/resilience"
)

// FromGRPC converts an error returned by a call to service into a business
// error. Transport failures are attributed to service as
// EXTERNAL_SERVICE_ERROR or EXTERNAL_SERVICE_TIMEOUT; everything else keeps
// the remote description and the kind recovered from the status code.
func FromGRPC(err error, service string) *apperrors.BusinessError {
	if err == nil {
		return nil
	}
	if fault, ok := apperrors.As(err); ok {
		return fault
	}

	switch status.Code(err) {
	case codes.Unavailable:
		return apperrors.Wrap(apperrors.KindExternalServiceError, "", resilience.External(service, err))
	case codes.DeadlineExceeded:
		return apperrors.Wrap(apperrors.KindExternalServiceTimeout, "", resilience.External(service, err))
	}
	return convert.FromGRPCError(err)
}
