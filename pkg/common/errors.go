package common

import (
	"fmt"
	"net/http"
)

// AppError is an application error carrying an HTTP status code
type AppError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, Err: err}
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{StatusCode: http.StatusUnauthorized, Message: message}
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *AppError {
	return &AppError{StatusCode: http.StatusForbidden, Message: message}
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: message, Err: err}
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Message: message}
}

// NewInternalServerError creates a 500 error
func NewInternalServerError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message}
}
