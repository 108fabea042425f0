package resilience

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/kbukum/faultkit/errors"
)

// Failure is implemented by errors that know which resilience kind they
// represent.
type Failure interface {
	error
	FailureKind() apperrors.Kind
}

// ExternalError reports a failed call to a downstream service.
type ExternalError struct {
	Service string
	Err     error
}

// External wraps err as a failure of the named downstream service.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Service: service, Err: err}
}

func (e *ExternalError) Error() string { return e.Service + ": " + e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }

// FailureKind is EXTERNAL_SERVICE_TIMEOUT when the call timed out and
// EXTERNAL_SERVICE_ERROR otherwise.
func (e *ExternalError) FailureKind() apperrors.Kind {
	if IsTimeout(e.Err) {
		return apperrors.KindExternalServiceTimeout
	}
	return apperrors.KindExternalServiceError
}

// Classify maps failures raised by resilience components and downstream
// calls to a kind. It inspects error identity and types only, never
// messages. It returns false for errors it does not recognise.
func Classify(err error) (apperrors.Kind, bool) {
	var (
		failure   Failure
		exhausted *ExhaustedError
	)
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ErrRateLimited):
		return apperrors.KindRateLimitExceeded, true
	case errors.Is(err, ErrBulkheadFull), errors.Is(err, ErrBulkheadTimeout):
		return apperrors.KindBulkheadFull, true
	case errors.As(err, &failure):
		return failure.FailureKind(), true
	case IsTimeout(err):
		return apperrors.KindExternalServiceTimeout, true
	case errors.As(err, &exhausted), isConnectionError(err):
		return apperrors.KindExternalServiceError, true
	}
	return "", false
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isConnectionError reports transport-level failures: any net.Error, refused
// or reset connections, broken pipes and truncated streams.
func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsNetworkError reports whether err is worth retrying against a network
// peer: transport failures and the retryable gRPC status codes.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if isConnectionError(err) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
			return true
		}
	}
	return false
}

// IsStorageConnectionError reports whether err means the storage connection
// failed and the operation may succeed on a fresh one.
func IsStorageConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.As(err, &connErr),
		pgconn.SafeToRetry(err):
		return true
	}
	return isConnectionError(err)
}
