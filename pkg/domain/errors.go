package domain

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound is returned when a profile has no stored progress.
var ErrProfileNotFound = errors.New("profile not found")

// Code is a machine-readable error code.
type Code string

const (
	// Module errors
	CodeModuleNotFound         Code = "MODULE_NOT_FOUND"
	CodeModuleLoadFailed       Code = "MODULE_LOAD_FAILED"
	CodeModuleInvalidStructure Code = "MODULE_INVALID_STRUCTURE"
	CodeModuleAlreadyActive    Code = "MODULE_ALREADY_ACTIVE"
	CodeModuleLocked           Code = "MODULE_LOCKED"

	// Task errors
	CodeTaskNotFound          Code = "TASK_NOT_FOUND"
	CodeTaskEvaluationError   Code = "TASK_EVALUATION_ERROR"
	CodeTaskInvalidSubmission Code = "TASK_INVALID_SUBMISSION"

	// Dialogue errors
	CodeDialogueNotFound         Code = "DIALOGUE_NOT_FOUND"
	CodeDialogueInvalidReference Code = "DIALOGUE_INVALID_REFERENCE"

	// Action errors
	CodeHandlerNotFound Code = "HANDLER_NOT_FOUND"
)

// Sentinels for errors.Is; matching is by code.
var (
	ErrModuleNotFound           = &Error{Code: CodeModuleNotFound, Message: "module not found"}
	ErrModuleLoadFailed         = &Error{Code: CodeModuleLoadFailed, Message: "module load failed"}
	ErrModuleInvalidStructure   = &Error{Code: CodeModuleInvalidStructure, Message: "invalid module structure"}
	ErrModuleAlreadyActive      = &Error{Code: CodeModuleAlreadyActive, Message: "another module is already active"}
	ErrModuleLocked             = &Error{Code: CodeModuleLocked, Message: "module is locked"}
	ErrTaskNotFound             = &Error{Code: CodeTaskNotFound, Message: "task not found"}
	ErrTaskEvaluation           = &Error{Code: CodeTaskEvaluationError, Message: "task evaluation failed"}
	ErrTaskInvalidSubmission    = &Error{Code: CodeTaskInvalidSubmission, Message: "invalid submission"}
	ErrDialogueNotFound         = &Error{Code: CodeDialogueNotFound, Message: "dialogue not found"}
	ErrDialogueInvalidReference = &Error{Code: CodeDialogueInvalidReference, Message: "invalid dialogue reference"}
	ErrHandlerNotFound          = &Error{Code: CodeHandlerNotFound, Message: "handler not found"}
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a domain error.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a domain error with a formatted message and key/value metadata.
func Errorf(code Code, metadata map[string]string, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Metadata: metadata}
}

// WrapError creates a domain error wrapping a cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code of a domain error in the chain, or "".
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
