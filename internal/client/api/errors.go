package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrServer            = errors.New("server error")
	ErrRequest           = errors.New("request failed")
	ErrMalformedResponse = errors.New("malformed response")
)

// Error is a failed request. Status is 0 when no response was received.
type Error struct {
	Status  int
	Message string
	Body    []byte

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.kind, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.kind, e.Status, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func transportError(err error) *Error {
	return &Error{Message: err.Error(), kind: ErrUnavailable, cause: err}
}

func statusError(status int, body []byte) *Error {
	return &Error{
		Status:  status,
		Message: serverMessage(status, body),
		Body:    body,
		kind:    kindForStatus(status),
	}
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return ErrRequest
	}
}

// serverMessage picks the human-readable message out of an error body:
// {"message": "..."} or {"error": "..."}, else the status text.
func serverMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if m := strings.TrimSpace(payload.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(payload.Error); m != "" {
			return m
		}
	}
	return http.StatusText(status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// MessageOf returns the server-provided message carried by err, or "".
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Message
	}
	return ""
}
