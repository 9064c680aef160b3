package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to API callers.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeBadRequest          = "BAD_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeUserExists          = "USER_EXISTS"
	CodeRegistrationFailed  = "REGISTRATION_FAILED"
	CodeConfirmationFailed  = "CONFIRMATION_FAILED"
	CodePasswordResetFailed = "PASSWORD_RESET_FAILED"
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

// Is matches another DomainError by code so sentinels compare by kind.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewBadRequest(message string) error {
	return NewDomainError(CodeBadRequest, message, http.StatusBadRequest, nil)
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

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
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

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
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
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
