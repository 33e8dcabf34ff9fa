package core

import "github.com/pkg/errors"

var ErrUnauthenticated = errors.New("user not authenticated")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned for entities that do not exist or are not owned by the caller.
// Both cases must look the same from the outside.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{msg: msg}
}

func (err *NotFoundError) Error() string {
	return err.msg
}

// IsNotFound reports whether the cause of err is a *NotFoundError.
func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field string
	msg   string
}

func NewConflictError(field, msg string) *ConflictError {
	return &ConflictError{Field: field, msg: msg}
}

func (err *ConflictError) Error() string {
	return err.msg
}

// StorageError wraps a failed storage operation (connection, transaction, commit).
// The operation was rolled back and may be retried as is.
type StorageError struct {
	Op  string
	Err error
}

// Not found, conflict, validation and shutdown errors are returned as is.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch cause := errors.Cause(err).(type) {
	case *NotFoundError, *ConflictError, *ValidationError, *shutdown:
		return cause
	}
	var serr *StorageError
	if errors.As(err, &serr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (err *StorageError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err *StorageError) Unwrap() error { return err.Err }

func (err *StorageError) Retryable() bool { return true }

// shutdown reports a condition the application cannot recover from; the API stops gracefully.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
