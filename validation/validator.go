package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validator collects field failures for hand-written checks.
//
//	err := validation.New().
//	    Required("name", in.Name).
//	    OneOf("mode", in.Mode, []string{"solo", "duel"}).
//	    Err()
type Validator struct {
	fields []FieldError
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// Fail records a failure for field.
func (v *Validator) Fail(field, message string) *Validator {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
	return v
}

// Check records message for field when ok is false.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.Fail(field, message)
	}
	return v
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.fields) > 0
}

// Fields returns the recorded failures.
func (v *Validator) Fields() []FieldError {
	return v.fields
}

// Err returns *Error when a check failed, nil otherwise.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	fields := make([]FieldError, len(v.fields))
	copy(fields, v.fields)
	return &Error{Fields: fields}
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// RequiredUUID checks that value is a non-nil UUID.
func (v *Validator) RequiredUUID(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		return v.Fail(field, "is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return v.Fail(field, "must be a valid UUID")
	}
	return v.Check(id != uuid.Nil, field, "must not be empty")
}

// OptionalUUID checks that value, when set, is a UUID.
func (v *Validator) OptionalUUID(field, value string) *Validator {
	if value == "" {
		return v
	}
	_, err := uuid.Parse(value)
	return v.Check(err == nil, field, "must be a valid UUID")
}

// MaxLength checks that value has at most maxLen bytes.
func (v *Validator) MaxLength(field, value string, maxLen int) *Validator {
	return v.Check(len(value) <= maxLen, field, fmt.Sprintf("must be at most %d", maxLen))
}

// MinLength checks that value has at least minLen bytes.
func (v *Validator) MinLength(field, value string, minLen int) *Validator {
	return v.Check(len(value) >= minLen, field, fmt.Sprintf("must be at least %d", minLen))
}

// Range checks that value lies in [minVal, maxVal].
func (v *Validator) Range(field string, value, minVal, maxVal int) *Validator {
	return v.Check(value >= minVal && value <= maxVal, field, fmt.Sprintf("must be between %d and %d", minVal, maxVal))
}

// OneOf checks that value, when set, is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v
	}
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	return v.Fail(field, "must be one of: "+strings.Join(allowed, ", "))
}

// ParseUUID parses value as the UUID named field.
func ParseUUID(field, value string) (uuid.UUID, error) {
	if err := New().RequiredUUID(field, value).Err(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(value), nil
}
