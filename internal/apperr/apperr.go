package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure so the HTTP layer can pick a status code.
type Kind string

const (
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound Kind = "not_found"
	// KindConflict marks a duplicate unique name or a delete blocked by a live reference.
	KindConflict Kind = "conflict"
	// KindValidation marks missing or malformed caller input.
	KindValidation Kind = "validation"
	// KindInternal marks storage or other unexpected failures.
	KindInternal Kind = "internal"
)

// Error carries a failure kind plus a dotted operation code such as
// "foodlog.create.missing_date".
type Error struct {
	kind Kind
	code string
	err  error
}

func (e *Error) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the dotted operation code.
func (e *Error) Code() string {
	return e.code
}

// New builds an Error for the given operation and reason.
func New(kind Kind, operation, reason string, cause error) error {
	return &Error{kind: kind, code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// NotFound builds a KindNotFound error.
func NotFound(operation, reason string, cause error) error {
	return New(KindNotFound, operation, reason, cause)
}

// Conflict builds a KindConflict error.
func Conflict(operation, reason string, cause error) error {
	return New(KindConflict, operation, reason, cause)
}

// Validation builds a KindValidation error.
func Validation(operation, reason string, cause error) error {
	return New(KindValidation, operation, reason, cause)
}

// Internal builds a KindInternal error.
func Internal(operation, reason string, cause error) error {
	return New(KindInternal, operation, reason, cause)
}

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return KindInternal
}

// CodeOf extracts the operation code from err, or "" for foreign errors.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return ""
}
