package errors

import "fmt"

// ErrorCode represents a Kin error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"        // 400
	ErrNotFound             ErrorCode = "NOT_FOUND"              // 404
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"         // 404
	ErrNoContactsAvailable  ErrorCode = "NO_CONTACTS_AVAILABLE"  // 404
	ErrConflict             ErrorCode = "CONFLICT"               // 409
	ErrCancelled            ErrorCode = "CANCELLED"              // 499
	ErrInternal             ErrorCode = "INTERNAL"               // 500
	ErrContactSourceFailure ErrorCode = "CONTACT_SOURCE_FAILURE" // 502
	ErrStorageFailure       ErrorCode = "STORAGE_FAILURE"        // 503
)

// KinError represents a structured error with code, status, and details.
type KinError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *KinError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the backend error, if any.
func (e *KinError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *KinError {
	return &KinError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a contact or counter record cannot be found.
func NewNotFound(identifier string) *KinError {
	return &KinError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("contact not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSurfaceNotFound creates a 404 error for a surface the host does not serve.
func NewSurfaceNotFound(id string) *KinError {
	return &KinError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("surface not found: %s", id),
		Details: map[string]any{"surface": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *KinError {
	return &KinError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewNoContactsAvailable creates a 404 error for an empty address book.
// Surfaces render a placeholder state for it instead of failing.
func NewNoContactsAvailable() *KinError {
	return &KinError{
		Code:    ErrNoContactsAvailable,
		Status:  404,
		Message: "no contacts available",
	}
}

// NewConflict creates a 409 error for a contact whose counters already exist.
func NewConflict(contactID string) *KinError {
	return &KinError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("counters for contact %q already exist", contactID),
		Details: map[string]any{"contact_id": contactID},
	}
}

// NewCancelled creates a 499 error for operations stopped by context cancellation.
func NewCancelled(op string) *KinError {
	return &KinError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *KinError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &KinError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewContactSourceFailure creates a 502 error when the address book cannot be read.
func NewContactSourceFailure(err error) *KinError {
	msg := "contact source failure"
	if err != nil {
		msg = fmt.Sprintf("contact source failure: %v", err)
	}
	return &KinError{
		Code:    ErrContactSourceFailure,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewStorageFailure creates a 503 error for a failed Counter Store operation.
func NewStorageFailure(op string, err error) *KinError {
	msg := fmt.Sprintf("storage failure during %s", op)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &KinError{
		Code:    ErrStorageFailure,
		Status:  503,
		Message: msg,
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// Is checks if an error is a KinError with the given code.
func Is(err error, code ErrorCode) bool {
	if kErr, ok := err.(*KinError); ok {
		return kErr.Code == code
	}
	return false
}
