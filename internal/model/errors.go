package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes repository errors.
type ErrorCode string

const (
	// CodeValidation indicates a required field is missing or malformed.
	// Nothing was written.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeInvalidState indicates an operation precondition was violated
	// (moving a library recipe out of the inbox, reorder index out of range).
	// Nothing was written.
	CodeInvalidState ErrorCode = "INVALID_STATE"

	// CodeNotFound indicates the referenced entity does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeStoreFailure indicates the store transaction failed and was rolled back.
	CodeStoreFailure ErrorCode = "STORE_FAILURE"

	// CodeResourceCleanup indicates a backing file could not be deleted.
	// It is logged; record deletion proceeds regardless.
	CodeResourceCleanup ErrorCode = "RESOURCE_CLEANUP"
)

// Error is the typed error returned across the repository boundary.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the repository operation, e.g. "move_to_library".
	Op string

	// Field names the offending input for validation errors.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	switch {
	case e.Op != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %s (field=%s)", e.Code, e.Op, msg, e.Field)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, msg, e.Field)
	default:
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOp returns a copy of e tagged with the operation name.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

// NewValidationError creates a VALIDATION error for field.
func NewValidationError(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

// NewInvalidState creates an INVALID_STATE error.
func NewInvalidState(op, message string) *Error {
	return &Error{Code: CodeInvalidState, Op: op, Message: message}
}

// NewNotFound creates a NOT_FOUND error for an entity id.
func NewNotFound(op, entity, id string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewStoreFailure wraps a failed store transaction.
func NewStoreFailure(op string, err error) *Error {
	return &Error{Code: CodeStoreFailure, Op: op, Message: "store transaction failed", Err: err}
}

// NewCleanupFailure wraps a failed backing-file deletion.
func NewCleanupFailure(op, filename string, err error) *Error {
	return &Error{Code: CodeResourceCleanup, Op: op, Message: "delete " + filename, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a VALIDATION error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsInvalidState reports whether err is an INVALID_STATE error.
func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsStoreFailure reports whether err is a STORE_FAILURE error.
func IsStoreFailure(err error) bool { return CodeOf(err) == CodeStoreFailure }

// IsCleanupFailure reports whether err is a RESOURCE_CLEANUP error.
func IsCleanupFailure(err error) bool { return CodeOf(err) == CodeResourceCleanup }
