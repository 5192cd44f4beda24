package service

import (
	"errors"
	"fmt"
)

const (
	// ErrInternalServerError means that an internal server error has occurred.
	ErrInternalServerError = "internal_server_error"
	// ErrEntityNotFound means that the node or record is absent in the coordination service or storage.
	ErrEntityNotFound = "entity_not_found"
	// ErrEntityExists means that a node with the same path already exists.
	ErrEntityExists = "entity_exists"
	// ErrBadParameter means that provided parameter does not match declared.
	ErrBadParameter = "bad_parameter"
	// ErrConnectionLoss means that no connection to the coordination service was available in time.
	ErrConnectionLoss = "connection_loss"
	// ErrNotRunning means that the client was never started or is already shut down.
	ErrNotRunning = "not_running"
)

// RegistryError represents an error within the context of myregistry services.
type RegistryError struct {
	// Code is a machine-readable code.
	Code string `json:"code,omitempty"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code string, message string, inner error) *RegistryError {
	return &RegistryError{
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

// newCoded keeps an already classified inner error instead of re-wrapping it.
func newCoded(code string, message string, inner error) *RegistryError {
	if regInner := ToRegistryError(inner); regInner != nil {
		return regInner
	}
	return NewRegistryError(code, message, inner)
}

func NewInternalServerError(message string, inner error) *RegistryError {
	return newCoded(ErrInternalServerError, message, inner)
}

func NewEntityNotFoundError(message string, inner error) *RegistryError {
	return newCoded(ErrEntityNotFound, message, inner)
}

func NewEntityExistsError(message string, inner error) *RegistryError {
	return newCoded(ErrEntityExists, message, inner)
}

func NewBadParameterError(message string, inner error) *RegistryError {
	return newCoded(ErrBadParameter, message, inner)
}

func NewConnectionLossError(message string, inner error) *RegistryError {
	return newCoded(ErrConnectionLoss, message, inner)
}

func NewNotRunningError(message string, inner error) *RegistryError {
	return newCoded(ErrNotRunning, message, inner)
}

func (e RegistryError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}

	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Unwrap the error returning the error's reason.
func (e RegistryError) Unwrap() error {
	return e.Inner
}

// ToRegistryError returns a pointer to a registry error, or nil if err is not one.
func ToRegistryError(err error) *RegistryError {
	var e *RegistryError
	if errors.As(err, &e) {
		return e
	}

	return nil
}

// ToRegistryErrorCode returns the code of the error, if available.
func ToRegistryErrorCode(err error) string {
	if regErr := ToRegistryError(err); regErr != nil {
		return regErr.Code
	}
	return ""
}

func IsRegistryError(err error, code string) bool {
	if regErr := ToRegistryError(err); regErr != nil {
		return regErr.Code == code
	}
	return false
}

func IsInternalServerError(err error) bool {
	return IsRegistryError(err, ErrInternalServerError)
}

func IsEntityNotFoundError(err error) bool {
	return IsRegistryError(err, ErrEntityNotFound)
}

func IsEntityExistsError(err error) bool {
	return IsRegistryError(err, ErrEntityExists)
}

func IsBadParameterError(err error) bool {
	return IsRegistryError(err, ErrBadParameter)
}

func IsConnectionLossError(err error) bool {
	return IsRegistryError(err, ErrConnectionLoss)
}

func IsNotRunningError(err error) bool {
	return IsRegistryError(err, ErrNotRunning)
}
