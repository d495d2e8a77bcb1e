package errors

import (
	goerrors "errors"
	"fmt"

	"whisper-asr-webservice/internal/app/model"
)

// Common error kinds, matchable with errors.Is
var (
	// Configuration errors
	ErrInvalidConfig = New("invalid configuration")

	// Request errors
	ErrValidation        = New("invalid request")
	ErrUnsupportedOption = New("unsupported option")
	ErrFormat            = New("format failed")

	// Model lifecycle errors
	ErrLoad          = New("model load failed")
	ErrCapacity      = New("model capacity exhausted")
	ErrUnknownEngine = New("engine not configured")
	ErrClosed        = New("manager is shut down")
	ErrNotLoaded     = New("model not loaded")
	ErrInUse         = New("model in use")
)

// Error represents a standardized error
type Error struct {
	message string
	cause   error
}

// New creates a new error
func New(message string) *Error {
	return &Error{message: message}
}

// Newf creates a new formatted error
func Newf(format string, args ...interface{}) *Error {
	return &Error{message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		message: fmt.Sprintf(format, args...),
		cause:   err,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.message == t.message
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// LoadError reports that the engine could not load a model.
// The key is returned to Unloaded so a later request may retry.
type LoadError struct {
	Key model.ModelKey
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// CapacityError reports that max_loaded_models is reached and every loaded model is in use
type CapacityError struct {
	Key   model.ModelKey
	Limit int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot load %s: %d models loaded and all are in use", e.Key, e.Limit)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// UnsupportedOptionError reports an option the selected engine cannot honor
type UnsupportedOptionError struct {
	Engine model.EngineKind
	Option string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("option %q is not supported by engine %s", e.Option, e.Engine)
}

func (e *UnsupportedOptionError) Is(target error) bool { return target == ErrUnsupportedOption }

// ValidationError reports a malformed request
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FormatError reports a result that cannot be serialized to the requested format.
// Result holds the transcription so callers can fall back to the raw output.
type FormatError struct {
	Format model.OutputFormat
	Reason string
	Result *model.Result
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot render %s: %s", e.Format, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// Helper functions for common patterns

// RequiredField returns a validation error for missing required fields
func RequiredField(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// InvalidField returns a validation error for invalid field values
func InvalidField(field string, reason string) error {
	return &ValidationError{Field: field, Reason: "is invalid: " + reason}
}

// OutOfRange returns a validation error for values outside acceptable range
func OutOfRange(field string, min, max interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("out of range (must be between %v and %v)", min, max)}
}

// Unsupported returns an UnsupportedOptionError
func Unsupported(engine model.EngineKind, option string) error {
	return &UnsupportedOptionError{Engine: engine, Option: option}
}

// AsLoad extracts a LoadError from err
func AsLoad(err error) (*LoadError, bool) {
	var target *LoadError
	ok := goerrors.As(err, &target)
	return target, ok
}

// AsFormat extracts a FormatError from err
func AsFormat(err error) (*FormatError, bool) {
	var target *FormatError
	ok := goerrors.As(err, &target)
	return target, ok
}

// AsValidation extracts a ValidationError from err
func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	ok := goerrors.As(err, &target)
	return target, ok
}

// AsUnsupported extracts an UnsupportedOptionError from err
func AsUnsupported(err error) (*UnsupportedOptionError, bool) {
	var target *UnsupportedOptionError
	ok := goerrors.As(err, &target)
	return target, ok
}
