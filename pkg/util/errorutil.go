package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes rendered in the "code" field of error responses.
const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError carries what the HTTP layer renders for a failed request.
// Err is kept for logs and errors.Is; it is never rendered.
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

// Body is the JSON envelope written to the client.
func (e *DomainError) Body() fiber.Map {
	body := fiber.Map{"code": e.Code, "message": e.Message}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return fiber.Map{"error": body}
}

func newError(code string, status int, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

// NewValidationError reports a malformed request; details maps field to the
// failed rule.
func NewValidationError(message string, details map[string]any) error {
	e := newError(CodeValidation, http.StatusBadRequest, message, nil)
	e.Details = details
	return e
}

// NewUnauthorized wraps cause so callers can still inspect it with errors.Is;
// only message is rendered to the client.
func NewUnauthorized(message string, cause error) error {
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, cause)
}

func NewForbidden(message string) error {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

func NewServiceUnavailable(message string) error {
	return newError(CodeUnavailable, http.StatusServiceUnavailable, message, nil)
}

func NewInternalError(err error) error {
	return newError(CodeInternal, http.StatusInternalServerError, "internal server error", err)
}

// ToDomainError converts any error into something renderable. Unknown errors
// become a 500 with the cause hidden.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return newError(http.StatusText(fiberErr.Code), fiberErr.Code, fiberErr.Message, err)
	case errors.Is(err, pgx.ErrNoRows):
		return newError(CodeNotFound, http.StatusNotFound, "resource not found", err)
	default:
		return newError(CodeInternal, http.StatusInternalServerError, "internal server error", err)
	}
}
