package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors (fatal for the load phase)
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Rule line errors (per line, the line is skipped)
	ErrParseFieldCount ErrorCode = "PARSE_FIELD_COUNT"
	ErrParseSyntax     ErrorCode = "PARSE_SYNTAX"
	ErrParseType       ErrorCode = "PARSE_TYPE"
	ErrParseModifier   ErrorCode = "PARSE_MODIFIER"
	ErrParsePath       ErrorCode = "PARSE_PATH"
	ErrParseMode       ErrorCode = "PARSE_MODE"
	ErrParseOwner      ErrorCode = "PARSE_OWNER"
	ErrParseAge        ErrorCode = "PARSE_AGE"
	ErrParseArgument   ErrorCode = "PARSE_ARGUMENT"

	// Specifier errors (per rule, the rule is skipped)
	ErrSpecifierUnresolved ErrorCode = "SPECIFIER_UNRESOLVED"
	ErrCredentialMissing   ErrorCode = "CREDENTIAL_MISSING"

	// Execution errors (recorded in the outcome)
	ErrPermission            ErrorCode = "PERMISSION"
	ErrNotFound              ErrorCode = "NOT_FOUND"
	ErrCrossDevice           ErrorCode = "CROSS_DEVICE"
	ErrLoop                  ErrorCode = "LOOP"
	ErrAlreadyExistsMismatch ErrorCode = "ALREADY_EXISTS_MISMATCH"
	ErrNotSupported          ErrorCode = "NOT_SUPPORTED"
	ErrIdentity              ErrorCode = "IDENTITY"
	ErrExecute               ErrorCode = "EXECUTE"
)

// Category groups error codes by the phase that produces them.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryParse     Category = "parse"
	CategorySpecifier Category = "specifier"
	CategoryExecution Category = "execution"
	CategoryOther     Category = "other"
)

// CategoryOf reports which phase an error code belongs to.
func CategoryOf(code ErrorCode) Category {
	switch code {
	case ErrConfigLoad, ErrConfigParse:
		return CategoryConfig
	case ErrParseFieldCount, ErrParseSyntax, ErrParseType, ErrParseModifier,
		ErrParsePath, ErrParseMode, ErrParseOwner, ErrParseAge, ErrParseArgument:
		return CategoryParse
	case ErrSpecifierUnresolved, ErrCredentialMissing:
		return CategorySpecifier
	case ErrPermission, ErrNotFound, ErrCrossDevice, ErrLoop,
		ErrAlreadyExistsMismatch, ErrNotSupported, ErrIdentity, ErrExecute:
		return CategoryExecution
	default:
		return CategoryOther
	}
}

// TmpfilesError represents a structured error with code and details
type TmpfilesError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *TmpfilesError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *TmpfilesError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *TmpfilesError) Is(target error) bool {
	var targetErr *TmpfilesError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new TmpfilesError with the given code and message
func New(code ErrorCode, message string) *TmpfilesError {
	return &TmpfilesError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new TmpfilesError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *TmpfilesError {
	return &TmpfilesError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a TmpfilesError
func Wrap(err error, code ErrorCode, message string) *TmpfilesError {
	if err == nil {
		return nil
	}
	return &TmpfilesError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *TmpfilesError {
	if err == nil {
		return nil
	}
	return &TmpfilesError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *TmpfilesError) WithDetail(key string, value interface{}) *TmpfilesError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *TmpfilesError) WithDetails(details map[string]interface{}) *TmpfilesError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var tmpErr *TmpfilesError
	if errors.As(err, &tmpErr) {
		return tmpErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a TmpfilesError
func GetErrorCode(err error) ErrorCode {
	var tmpErr *TmpfilesError
	if errors.As(err, &tmpErr) {
		return tmpErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a TmpfilesError
func GetErrorDetails(err error) map[string]interface{} {
	var tmpErr *TmpfilesError
	if errors.As(err, &tmpErr) {
		return tmpErr.Details
	}
	return nil
}

// FromFS maps a filesystem call failure onto an execution error code.
// Errors that already carry a code are returned unchanged.
func FromFS(err error, op, path string) error {
	if err == nil {
		return nil
	}
	var tmpErr *TmpfilesError
	if errors.As(err, &tmpErr) {
		return err
	}

	code := ErrExecute
	var errno syscall.Errno
	switch {
	case errors.Is(err, fs.ErrPermission):
		code = ErrPermission
	case errors.Is(err, fs.ErrNotExist):
		code = ErrNotFound
	case errors.As(err, &errno) && errno == syscall.EXDEV:
		code = ErrCrossDevice
	case errors.As(err, &errno) && (errno == syscall.ELOOP || errno == syscall.EMLINK):
		code = ErrLoop
	case errors.Is(err, errors.ErrUnsupported),
		errors.As(err, &errno) && (errno == syscall.ENOTSUP || errno == syscall.EOPNOTSUPP || errno == syscall.ENOSYS):
		code = ErrNotSupported
	}

	return Wrapf(err, code, "%s %s", op, path).
		WithDetail("op", op).
		WithDetail("path", path)
}
