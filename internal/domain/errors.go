// Package domain defines core types, interfaces, and errors for the roaming
// reference-data back office.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates a missing or invalid session.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input: a malformed request, an empty or
// short payload, or no surviving data rows after blank-row filtering.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ConfigurationError indicates drift between the dataset configuration stored
// in the database and the transfer routines known to the binary.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// VersionNotFoundError indicates that a version could not be re-resolved by
// label and dataset id.
type VersionNotFoundError struct {
	DatasetID int64
	Label     string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found for dataset %d", e.Label, e.DatasetID)
}

// PersistenceError wraps an underlying store failure (constraint violation,
// connectivity loss, malformed SQL).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// EmptyUploadError is the ValidationError returned when an upload has no data
// rows left after the header boundary and blank-row filtering.
type EmptyUploadError struct {
	ValidationError
}

// Unwrap lets errors.As match the embedded ValidationError.
func (e *EmptyUploadError) Unwrap() error { return &e.ValidationError }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// ErrEmptyUpload creates an EmptyUploadError with a formatted message.
func ErrEmptyUpload(format string, args ...interface{}) *EmptyUploadError {
	return &EmptyUploadError{ValidationError{Message: fmt.Sprintf(format, args...)}}
}

// ErrPersistence wraps err as a PersistenceError for op. A nil err yields nil.
func ErrPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
