package errors

import (
	stderrors "errors"
)

// noRollbacker is implemented by errors that must not abort an enclosing
// transaction.
type noRollbacker interface {
	NoRollback() bool
}

type noRollbackError struct {
	err error
}

func (e *noRollbackError) Error() string    { return e.err.Error() }
func (e *noRollbackError) Unwrap() error    { return e.err }
func (e *noRollbackError) NoRollback() bool { return true }

// MarkNoRollback wraps err so that ShouldRollback reports false for it.
func MarkNoRollback(err error) error {
	if err == nil {
		return nil
	}
	return &noRollbackError{err: err}
}

// ShouldRollback reports whether a transaction manager should roll back when
// a unit of work fails with err. Every failure rolls back, business errors
// included, unless it is explicitly declared as non-rollback.
func ShouldRollback(err error) bool {
	if err == nil {
		return false
	}
	var nr noRollbacker
	if stderrors.As(err, &nr) && nr.NoRollback() {
		return false
	}
	return true
}
