package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrNothingFound:
		return http.StatusUnprocessableEntity
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// Details is the wrapped cause, reported to clients next to the message.
func (e *AppError) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInternal
	ErrConfiguration
	ErrUpstream
	ErrNothingFound
	ErrTooLarge
	ErrStorage
)

func NotFound(resource string, err error) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{Code: ErrBadRequest, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Code: ErrInternal, Message: "internal server error", Err: err}
}

// Configuration reports missing or invalid server configuration. It fails the request,
// never the process.
func Configuration(message string, err error) *AppError {
	return &AppError{Code: ErrConfiguration, Message: message, Err: err}
}

// Upstream reports that a dependency (store, AI service) could not serve the request.
func Upstream(message string, err error) *AppError {
	return &AppError{Code: ErrUpstream, Message: message, Err: err}
}

// Storage reports a document store failure. Clients see it as a 500.
func Storage(message string, err error) *AppError {
	return &AppError{Code: ErrStorage, Message: message, Err: err}
}

func NothingFound(message string) *AppError {
	return &AppError{Code: ErrNothingFound, Message: message}
}

func TooLarge(message string) *AppError {
	return &AppError{Code: ErrTooLarge, Message: message}
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
