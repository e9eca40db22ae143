package services

import (
	"errors"
	"fmt"

	"chat-server/repository"
)

// Event error codes. Every failed inbound event is answered with exactly
// one error event carrying one of these codes; only an authentication
// failure at handshake time terminates the session.
const (
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStore          = "STORE_ERROR"
)

// EventError is the failure of a single inbound event.
type EventError struct {
	Code    string
	Message string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func authenticationError(format string, args ...interface{}) *EventError {
	return &EventError{Code: CodeAuthentication, Message: fmt.Sprintf(format, args...)}
}

func authorizationError(format string, args ...interface{}) *EventError {
	return &EventError{Code: CodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) *EventError {
	return &EventError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func validationError(format string, args ...interface{}) *EventError {
	return &EventError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// asEventError classifies err. Repository misses become NOT_FOUND; anything
// unrecognized is a store failure.
func asEventError(err error) *EventError {
	var ev *EventError
	if errors.As(err, &ev) {
		return ev
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &EventError{Code: CodeNotFound, Message: err.Error()}
	}
	return &EventError{Code: CodeStore, Message: err.Error()}
}
