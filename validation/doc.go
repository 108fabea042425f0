// Package validation checks request input and reports failures as *Error,
// which the error handler chain turns into BAD_REQUEST with the failing
// fields as detail.
//
// Struct tags are checked with go-playground/validator:
//
//	type CreatePlayer struct {
//	    Name  string `json:"name" validate:"required,min=2"`
//	    Email string `json:"email" validate:"required,email"`
//	}
//	err := validation.Struct(cmd)
//
// Hand-written checks use the Validator builder:
//
//	err := validation.New().Required("name", name).Err()
package validation
