package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies failures so callers can branch behavior per kind
// instead of parsing message strings.
type ErrorType string

const (
	// ErrorTypeInvalidInput indicates the caller supplied no usable input
	ErrorTypeInvalidInput ErrorType = "INVALID_INPUT"

	// ErrorTypeInvalidState indicates an operation was invoked in a state
	// the lifecycle forbids
	ErrorTypeInvalidState ErrorType = "INVALID_STATE"

	// ErrorTypeUnauthorized indicates the API key was rejected
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeRateLimited indicates the remote service throttled the request
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"

	// ErrorTypeServer indicates the remote service reported a failure
	ErrorTypeServer ErrorType = "SERVER"

	// ErrorTypeNetwork indicates the request never produced a usable response
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeNoData indicates a response was received but carried nothing
	ErrorTypeNoData ErrorType = "NO_DATA"
)

// AppError is the error value surfaced across the analysis pipeline.
type AppError struct {
	Type    ErrorType
	Message string

	// Code is the HTTP status for SERVER errors, zero otherwise.
	Code int

	// RetryAfter is the server-suggested wait in seconds for RATE_LIMITED
	// errors, zero otherwise.
	RetryAfter int

	Err error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string) *AppError {
	return &AppError{Type: ErrorTypeInvalidInput, Message: message}
}

// NewInvalidStateError creates a new invalid state error
func NewInvalidStateError(message string) *AppError {
	return &AppError{Type: ErrorTypeInvalidState, Message: message}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// NewRateLimitedError creates a new rate limited error with the
// server-suggested retry delay in seconds.
func NewRateLimitedError(message string, retryAfter int) *AppError {
	return &AppError{Type: ErrorTypeRateLimited, Message: message, RetryAfter: retryAfter}
}

// NewServerError creates a new server error carrying the HTTP status code
func NewServerError(code int, message string) *AppError {
	return &AppError{Type: ErrorTypeServer, Message: message, Code: code}
}

// NewNoFoodDetectedError creates the distinguished server error returned when
// the detection model finds nothing edible in an image.
func NewNoFoodDetectedError() *AppError {
	return &AppError{Type: ErrorTypeServer, Message: "no food detected in image"}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Message: message, Err: err}
}

// NewNoDataError creates a new no data error
func NewNoDataError(message string) *AppError {
	return &AppError{Type: ErrorTypeNoData, Message: message}
}

// TypeOf returns the ErrorType of err, or empty string when err is not an
// AppError.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsUnauthorized reports whether err is an unauthorized error
func IsUnauthorized(err error) bool {
	return TypeOf(err) == ErrorTypeUnauthorized
}

// IsRateLimited reports whether err is a rate limited error
func IsRateLimited(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimited
}

// IsFatalForBatch reports whether err invalidates a whole multi-image
// operation rather than a single image. Unauthorized and rate-limit failures
// describe the service, not the image that happened to surface them.
func IsFatalForBatch(err error) bool {
	t := TypeOf(err)
	return t == ErrorTypeUnauthorized || t == ErrorTypeRateLimited
}

// IsNoFoodDetected reports whether err is the detection model's "nothing
// edible here" response. The remote API signals this in the message body, so
// the match is by content.
func IsNoFoodDetected(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == ErrorTypeServer && strings.Contains(strings.ToLower(appErr.Message), "no food")
}

// RetryAfterSeconds returns the suggested retry delay for rate limited
// errors, zero for everything else.
func RetryAfterSeconds(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}
