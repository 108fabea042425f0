package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// BusinessError is the canonical error type. It carries a catalog Kind, a
// message (the kind's default unless overridden), an optional detail that is
// only sent to clients when set explicitly, and an optional cause.
//
// A BusinessError is immutable; the With* methods return modified copies.
type BusinessError struct {
	kind    Kind
	message string
	detail  *string
	cause   error
}

// New creates a BusinessError with the kind's default message.
func New(kind Kind) *BusinessError {
	return &BusinessError{kind: kind, message: Lookup(kind).Message}
}

// WithMessage creates a BusinessError with an overriding message.
// An empty message falls back to the kind's default.
func WithMessage(kind Kind, message string) *BusinessError {
	if message == "" {
		message = Lookup(kind).Message
	}
	return &BusinessError{kind: kind, message: message}
}

// Newf creates a BusinessError with a formatted message.
func Newf(kind Kind, format string, args ...any) *BusinessError {
	return WithMessage(kind, fmt.Sprintf(format, args...))
}

// Wrap creates a BusinessError that records cause as the underlying error.
func Wrap(kind Kind, message string, cause error) *BusinessError {
	e := WithMessage(kind, message)
	e.cause = cause
	return e
}

// Error returns the string representation of the error.
func (e *BusinessError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap returns the underlying cause of the error.
func (e *BusinessError) Unwrap() error { return e.cause }

// Kind returns the catalog kind. Kinds outside the catalog report
// INTERNAL_SERVER_ERROR.
func (e *BusinessError) Kind() Kind {
	if !e.kind.Valid() {
		return KindInternal
	}
	return e.kind
}

// Code returns the public numeric code.
func (e *BusinessError) Code() int { return e.Kind().Code() }

// Message returns the human-readable message.
func (e *BusinessError) Message() string { return e.message }

// HTTPStatus returns the request-protocol status.
func (e *BusinessError) HTTPStatus() int { return e.Kind().HTTPStatus() }

// GRPCCode returns the RPC status code.
func (e *BusinessError) GRPCCode() codes.Code { return e.Kind().GRPCCode() }

// Detail returns the explicitly attached detail, if any.
func (e *BusinessError) Detail() (string, bool) {
	if e.detail == nil {
		return "", false
	}
	return *e.detail, true
}

// WithDetail returns a copy carrying detail. Detail is the only part of a
// business error besides code and message that reaches clients.
func (e *BusinessError) WithDetail(detail string) *BusinessError {
	c := *e
	c.detail = &detail
	return &c
}

// WithCause returns a copy recording cause as the underlying error.
func (e *BusinessError) WithCause(cause error) *BusinessError {
	c := *e
	c.cause = cause
	return &c
}

// LogFields implements logger.Loggable. The message is left to the log
// record itself.
func (e *BusinessError) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"kind": string(e.Kind()),
		"code": e.Code(),
	}
	if e.cause != nil {
		fields["cause"] = e.cause.Error()
	}
	return fields
}

// As finds the first BusinessError in err's chain.
func As(err error) (*BusinessError, bool) {
	var be *BusinessError
	if stderrors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Is reports whether err's chain contains a BusinessError of the given kind.
func Is(err error, kind Kind) bool {
	be, ok := As(err)
	return ok && be.Kind() == kind
}

// KindOf returns the kind of the first BusinessError in err's chain, or
// INTERNAL_SERVER_ERROR when there is none.
func KindOf(err error) Kind {
	if be, ok := As(err); ok {
		return be.Kind()
	}
	return KindInternal
}

// Sentinels for failures raised by collaborators below the business layer.
// Handlers and the classifier recognise them structurally.
var (
	// ErrIllegalArgument marks a failure caused by an invalid argument.
	ErrIllegalArgument = stderrors.New("illegal argument")
	// ErrPermission marks a failure caused by a missing permission.
	ErrPermission = stderrors.New("permission denied")
	// ErrDataIntegrity marks a storage constraint violation.
	ErrDataIntegrity = stderrors.New("data integrity violation")
)
