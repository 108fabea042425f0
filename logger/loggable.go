package logger

import (
	"context"
	"errors"
)

// Loggable is implemented by values that know which of their fields are
// safe and useful to log. Loggers use it instead of inspecting values.
type Loggable interface {
	LogFields() map[string]interface{}
}

// FieldsOf returns the fields of the first Loggable in err's chain, or nil.
func FieldsOf(err error) map[string]interface{} {
	var l Loggable
	if errors.As(err, &l) {
		return l.LogFields()
	}
	return nil
}

type requestIDKey struct{}

// ContextWithRequestID returns a copy of ctx carrying the request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
