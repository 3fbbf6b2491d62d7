// Package domainerrors provides coded errors shared by services and handlers.
//
// Services return *Error values carrying a Code; transport layers translate the
// code into a status without inspecting messages. Details carry the context a
// caller needs to decide whether to retry (driver id, entry id, the offending
// timestamp) and are safe to expose to clients.
package domainerrors

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal"

	// Duty-status ledger codes.
	CodeAlreadyCertified  Code = "already_certified"
	CodeOpenEntry         Code = "open_entry"
	CodeUnknownRuleSet    Code = "unknown_rule_set"
	CodeInvalidTransition Code = "invalid_transition"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithDetail returns a copy of e with key set to value.
func (e *Error) WithDetail(key, value string) *Error {
	out := *e
	out.Details = make(map[string]string, len(e.Details)+1)
	maps.Copy(out.Details, e.Details)
	out.Details[key] = value
	return &out
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if errors.As(err, &de) {
			if de.Code == code {
				return true
			}
			err = de.Err
			continue
		}
		return false
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Details returns the details of the outermost *Error in err's chain.
func Details(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Details
	}
	return nil
}

// ToHTTPStatus maps a code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput, CodeUnknownRuleSet:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyCertified, CodeOpenEntry, CodeInvalidTransition, CodeInvariantViolation:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
