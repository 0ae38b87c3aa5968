// Package domainerrors provides coded domain errors for the license service.
// Import it aliased as dErrors.
//
// Services return these from their public methods so transport layers can map
// them to HTTP statuses without inspecting error strings. Infrastructure
// facts (row missing, lock conflict) live in pkg/platform/sentinel; services
// translate sentinel errors into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error.
type Code string

const (
	// Generic codes shared by every feature.
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInternal           Code = "INTERNAL"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"

	// License lifecycle codes. These are part of the public API surface:
	// the desktop client and the support dashboard branch on them.
	CodeInvalidKey           Code = "INVALID_KEY"
	CodeKeyNotActivatable    Code = "KEY_NOT_ACTIVATABLE"
	CodeDeviceMismatch       Code = "DEVICE_MISMATCH"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeConfirmationMismatch Code = "CONFIRMATION_MISMATCH"
)

// Error is a domain error with a machine-readable code and a human-readable
// message safe to return to callers.
type Error struct {
	Code    Code
	Message string
	Detail  string // optional support-facing diagnostic, never shown to end users
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// NewWithDetail constructs a coded error carrying a support diagnostic,
// e.g. distinguishing revoked from replaced on KEY_NOT_ACTIVATABLE.
func NewWithDetail(code Code, message, detail string) error {
	return &Error{Code: code, Message: message, Detail: detail}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DetailOf returns the support diagnostic of err, if any.
func DetailOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Detail
	}
	return ""
}

// MessageOf returns the caller-safe message of err. Uncoded errors map to a
// generic message so internals never leak through the API.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to the HTTP status the transport layer responds with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound, CodeInvalidKey:
		return http.StatusNotFound
	case CodeConflict, CodeKeyNotActivatable, CodeDeviceMismatch, CodeInvariantViolation:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidSignature:
		return http.StatusUnauthorized
	case CodeForbidden, CodeConfirmationMismatch:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
