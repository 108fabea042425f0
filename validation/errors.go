package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a failed validation. It is reported to clients as BAD_REQUEST
// with the field failures as detail.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	return "validation failed: " + e.Detail()
}

// Detail renders the field failures as "field: message; field: message".
func (e *Error) Detail() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}

// FromValidationErrors converts the failures reported by go-playground
// validator.
func FromValidationErrors(errs validator.ValidationErrors) *Error {
	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, FieldError{
			Field:   fieldName(e),
			Message: describe(e),
		})
	}
	return &Error{Fields: fields}
}

// fieldName uses the registered tag name when there is one and falls back
// to the snake_case struct field name.
func fieldName(e validator.FieldError) string {
	if name := e.Field(); name != "" && name != e.StructField() {
		return name
	}
	return toSnakeCase(e.StructField())
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "len":
		return "must have length " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
