// Package errors maps service errors onto HTTP responses.
package errors

import (
	"context"
	"net/http"

	apperrors "whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// ErrorKind represents different types of API errors
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindBadRequest         ErrorKind = "bad_request"
	KindUnsupported        ErrorKind = "unsupported_option"
	KindNotFound           ErrorKind = "not_found"
	KindConflict           ErrorKind = "conflict"
	KindCapacity           ErrorKind = "capacity"
	KindLoad               ErrorKind = "model_load"
	KindFormat             ErrorKind = "format"
	KindClientClosed       ErrorKind = "client_closed"
	KindServiceUnavailable ErrorKind = "service_unavailable"
	KindInternal           ErrorKind = "internal"
)

// StatusClientClosedRequest is the nginx convention for a request the client abandoned
const StatusClientClosedRequest = 499

// APIError represents a structured API error response
type APIError struct {
	Kind      ErrorKind         `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	// Result carries the raw transcription when only formatting failed
	Result *model.Result `json:"result,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error kind
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest, KindUnsupported:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindCapacity, KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindLoad:
		return http.StatusBadGateway
	case KindClientClosed:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(message string, fields map[string]string) *APIError {
	return &APIError{Kind: KindValidation, Message: message, Details: fields}
}

// NewBadRequestError creates a bad request error
func NewBadRequestError(message string) *APIError {
	return &APIError{Kind: KindBadRequest, Message: message}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *APIError {
	return &APIError{Kind: KindNotFound, Message: message}
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *APIError {
	return &APIError{Kind: KindInternal, Message: message}
}

// FromError classifies any error returned by the service layer
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}

	if v, ok := apperrors.AsValidation(err); ok {
		return NewValidationError("Validation failed", map[string]string{v.Field: v.Reason})
	}
	if u, ok := apperrors.AsUnsupported(err); ok {
		return &APIError{Kind: KindUnsupported, Message: err.Error(), Details: map[string]string{
			"engine": string(u.Engine),
			"option": u.Option,
		}}
	}
	if f, ok := apperrors.AsFormat(err); ok {
		return &APIError{Kind: KindFormat, Message: err.Error(), Result: f.Result}
	}

	switch {
	case apperrors.Is(err, apperrors.ErrCapacity):
		return &APIError{Kind: KindCapacity, Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrLoad):
		return &APIError{Kind: KindLoad, Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrNotLoaded):
		return NewNotFoundError(err.Error())
	case apperrors.Is(err, apperrors.ErrInUse):
		return &APIError{Kind: KindConflict, Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrClosed):
		return &APIError{Kind: KindServiceUnavailable, Message: err.Error()}
	case apperrors.Is(err, context.Canceled):
		return &APIError{Kind: KindClientClosed, Message: "client closed request"}
	case apperrors.Is(err, context.DeadlineExceeded):
		return &APIError{Kind: KindServiceUnavailable, Message: "request timed out"}
	}
	return NewInternalError("Internal server error")
}
