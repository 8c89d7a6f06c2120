package router

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrUnauthorizedCode       = "UNAUTHORIZED"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrConflictCode           = "CONFLICT"
	ErrTooManyRequestsCode    = "TOO_MANY_REQUESTS"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

// RequestError represents errors that can occur during request handling
type RequestError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{
		StatusCode: statusCode,
		Reason:     reason,
		Err:        err,
	}
}

// ErrorInfo is the error part of the response envelope.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// GetErrorInfo extracts error information for the standardized response
func (e *RequestError) GetErrorInfo() *ErrorInfo {
	var details string
	if e.Err != nil {
		details = e.Err.Error()
	}
	return &ErrorInfo{
		Code:    CodeForStatus(e.StatusCode),
		Message: e.Reason,
		Details: details,
	}
}

// CodeForStatus maps an HTTP status onto the public error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequestCode
	case http.StatusNotFound:
		return ErrNotFoundCode
	case http.StatusUnauthorized:
		return ErrUnauthorizedCode
	case http.StatusConflict:
		return ErrConflictCode
	case http.StatusTooManyRequests:
		return ErrTooManyRequestsCode
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLargeCode
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailableCode
	default:
		return ErrInternalCode
	}
}
