package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies gateway failures.
type ErrorType string

const (
	// ErrTransport means the API could not be reached or the response was unreadable.
	ErrTransport ErrorType = "transport"
	// ErrValidation is a 4xx answer: the request was rejected.
	ErrValidation ErrorType = "validation"
	// ErrServer is a 5xx answer.
	ErrServer ErrorType = "server"
)

// Error is returned by every gateway call that fails.
type Error struct {
	Type    ErrorType
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Op, e.Type, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s error (status %d)", e.Op, e.Type, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Type, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Type)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text front-ends show: the server's message when it
// sent one, otherwise fallback.
func (e *Error) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

func statusError(op string, status int, message string) *Error {
	t := ErrValidation
	if status >= 500 {
		t = ErrServer
	}
	return &Error{Type: t, Op: op, Status: status, Message: message}
}

func transportError(op string, err error) *Error {
	return &Error{Type: ErrTransport, Op: op, Err: err}
}

// TypeOf returns the ErrorType of err, or "" when err is not a gateway error.
func TypeOf(err error) ErrorType {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Type
	}
	return ""
}

func hasStatus(err error, status int) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Status == status
}

func IsNotFound(err error) bool     { return hasStatus(err, http.StatusNotFound) }
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// Message extracts a displayable message from any error.
func Message(err error, fallback string) string {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.UserMessage(fallback)
	}
	return fallback
}
