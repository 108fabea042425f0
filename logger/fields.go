package logger

// Standard field keys.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request_id"
	FieldError     = "error"
	FieldPath      = "path"
	FieldProtocol  = "protocol"
	FieldCode      = "code"
	FieldKind      = "kind"
	FieldHandler   = "handler"
	FieldLimiter   = "limiter"
	FieldPolicy    = "policy"
	FieldAttempt   = "attempt"
	FieldDelay     = "delay_ms"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("done", logger.Fields("op", "save", "id", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// Merge combines field maps; later maps win on key collisions.
func Merge(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
