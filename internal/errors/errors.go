package errors

import (
	"errors"
	"fmt"
)

// Exit codes for lab-ctl
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitValidation      = 2
	ExitNotFound        = 3
	ExitAdapterFailed   = 4
	ExitPartial         = 5
	ExitConfigError     = 6
	ExitAlreadyExists   = 7
	ExitBatchIncomplete = 8
)

// Kind classifies a LabError for per-item outcome accounting.
type Kind string

const (
	KindGeneral    Kind = "general"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindAdapter    Kind = "adapter"
	KindPartial    Kind = "partial"
	KindConflict   Kind = "conflict"
	KindConfig     Kind = "config"
)

// LabError is the base error type for lab-ctl
type LabError struct {
	Code    int
	Kind    Kind
	Message string
	Cause   error
}

func (e *LabError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LabError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *LabError) ExitCode() int {
	return e.Code
}

// New creates a new LabError of the general kind
func New(code int, message string) *LabError {
	return &LabError{
		Code:    code,
		Kind:    KindGeneral,
		Message: message,
	}
}

// Wrap wraps an existing error with a LabError of the general kind
func Wrap(code int, message string, cause error) *LabError {
	return &LabError{
		Code:    code,
		Kind:    KindGeneral,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// Validation returns an error for malformed input rejected before any
// adapter is touched.
func Validation(format string, args ...any) *LabError {
	return &LabError{
		Code:    ExitValidation,
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// NotFound returns an error for a referenced entity that does not exist.
// what is the entity type ("account", "container", "connection").
func NotFound(what, name string) *LabError {
	return &LabError{
		Code:    ExitNotFound,
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// AdapterFailed returns an error for a failed registry or runtime call.
func AdapterFailed(op string, cause error) *LabError {
	return &LabError{
		Code:    ExitAdapterFailed,
		Kind:    KindAdapter,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
	}
}

// Partial returns a warning for a compound operation whose first step
// succeeded but whose dependent step failed.
func Partial(message string, cause error) *LabError {
	return &LabError{
		Code:    ExitPartial,
		Kind:    KindPartial,
		Message: message,
		Cause:   cause,
	}
}

// AlreadyExists returns an error for a create that collides with an
// existing entity.
func AlreadyExists(what, name string) *LabError {
	return &LabError{
		Code:    ExitAlreadyExists,
		Kind:    KindConflict,
		Message: fmt.Sprintf("%s already exists: %s", what, name),
	}
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *LabError {
	return &LabError{
		Code:    ExitConfigError,
		Kind:    KindConfig,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the Kind of the first LabError in err's chain.
// A partial-completion warning wins over any kind nested below it.
func KindOf(err error) Kind {
	var labErr *LabError
	if errors.As(err, &labErr) {
		return labErr.Kind
	}
	return KindGeneral
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsPartial reports whether err is a partial-completion warning.
func IsPartial(err error) bool {
	return err != nil && KindOf(err) == KindPartial
}

// IsConflict reports whether err is an already-exists error.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var labErr *LabError
	if errors.As(err, &labErr) {
		return labErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
