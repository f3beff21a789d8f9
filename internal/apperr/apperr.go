package apperr

import (
	"fmt"
	"net/http"
)

// Code is the numeric errorCode returned to clients.
type Code int

const (
	UserNotFound        Code = 1001
	UserAlreadyExists   Code = 1002
	IncorrectPassword   Code = 1003
	AddressNotFound     Code = 1004
	AddressNotBelong    Code = 1005
	InvalidID           Code = 1006
	UnprocessableEntity Code = 2001
	CartEmpty           Code = 2002
	NoShippingAddress   Code = 2003
	InternalException   Code = 3001
	PaymentUnavailable  Code = 3002
	Unauthorized        Code = 4001
	Forbidden           Code = 4003
	ProductNotFound     Code = 5001
	CartItemNotFound    Code = 5002
	OrderNotFound       Code = 6001
	OrderNotCancellable Code = 6002
)

// HTTPError is an error that knows how it should be rendered.
type HTTPError struct {
	Message    string `json:"message"`
	ErrorCode  Code   `json:"errorCode"`
	StatusCode int    `json:"-"`
	Errors     any    `json:"errors"`
	Err        error  `json:"-"`
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

func New(status int, code Code, message string) *HTTPError {
	return &HTTPError{Message: message, ErrorCode: code, StatusCode: status}
}

func BadRequest(message string, code Code) *HTTPError {
	return New(http.StatusBadRequest, code, message)
}

func NotFound(message string, code Code) *HTTPError {
	return New(http.StatusNotFound, code, message)
}

func UnauthorizedErr(message string) *HTTPError {
	return New(http.StatusUnauthorized, Unauthorized, message)
}

func ForbiddenErr(message string) *HTTPError {
	return New(http.StatusForbidden, Forbidden, message)
}

// Unprocessable carries per-field validation messages in Errors.
func Unprocessable(message string, errs any) *HTTPError {
	e := New(http.StatusUnprocessableEntity, UnprocessableEntity, message)
	e.Errors = errs
	return e
}

// Internal wraps cause; the cause is logged but never rendered.
func Internal(cause error) *HTTPError {
	e := New(http.StatusInternalServerError, InternalException, "Something went wrong")
	e.Err = cause
	return e
}
