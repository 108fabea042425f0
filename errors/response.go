package errors

import (
	"time"
)

// ErrorPayload is the protocol-neutral error body written to clients.
// Detail is serialized as null when absent.
type ErrorPayload struct {
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Detail    *string   `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

// ToPayload converts the error to a payload for the given request path.
// The detail is only populated when one was attached with WithDetail.
func (e *BusinessError) ToPayload(path string) ErrorPayload {
	p := ErrorPayload{
		Code:      e.Code(),
		Message:   e.message,
		Timestamp: time.Now().UTC(),
		Path:      path,
	}
	if d, ok := e.Detail(); ok {
		p.Detail = &d
	}
	return p
}
