package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered to API clients.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeMissingField         = "MISSING_FIELD"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeNotFound             = "NOT_FOUND"
	CodeTerminalState        = "TERMINAL_STATE"
	CodeConflict             = "CONFLICT"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeProvidersUnreachable = "PROVIDERS_UNREACHABLE"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewMissingField reports a required client input that was absent.
func NewMissingField(fields ...string) error {
	return NewDomainError(CodeMissingField, "required field missing", http.StatusBadRequest,
		map[string]any{"fields": fields})
}

// NewInvalidStatus reports a status label outside the accepted set.
func NewInvalidStatus(requested string, accepted []string) error {
	return NewDomainError(CodeInvalidStatus, fmt.Sprintf("status %q is not valid", requested), http.StatusBadRequest,
		map[string]any{"accepted": accepted})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewTerminalState reports an attempt to mutate a ticket that is already done.
func NewTerminalState(ticketCode string) error {
	return NewDomainError(CodeTerminalState, "ticket is already done and can no longer change status", http.StatusConflict,
		map[string]any{"ticket_code": ticketCode})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewInvalidCredentials reports an explicit credential rejection by an identity provider.
func NewInvalidCredentials(message string) error {
	if message == "" {
		message = "invalid username or password"
	}
	return NewDomainError(CodeInvalidCredentials, message, http.StatusUnauthorized, nil)
}

// NewProvidersUnreachable reports that no identity provider could be reached.
func NewProvidersUnreachable(err error) error {
	return &DomainError{
		Code:       CodeProvidersUnreachable,
		Message:    "authentication service unreachable, check your network or VPN connection",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewTooManyRequests(message string) error {
	return NewDomainError(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf returns the DomainError code carried by err, or "" when err is nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

func MapError(err error) error {
	return ToDomainError(err)
}
