package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Error is a service-level error carrying the HTTP status it maps to.
// Services return these; handlers pass them to Write.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

// Invalid creates a 400 error. Use in service layer for bad input validation.
func Invalid(msg string) error {
	return &Error{Status: http.StatusBadRequest, Msg: msg}
}

// Unauthorized creates a 401 error for missing or unverifiable identity.
func Unauthorized(msg string) error {
	return &Error{Status: http.StatusUnauthorized, Msg: msg}
}

// Forbidden creates a 403 error for actions the caller may not perform,
// e.g. editing another user's message.
func Forbidden(msg string) error {
	return &Error{Status: http.StatusForbidden, Msg: msg}
}

// NotFound creates a 404 error.
func NotFound(msg string) error {
	return &Error{Status: http.StatusNotFound, Msg: msg}
}

// Map converts repo/infra errors into an HTTP status plus message.
// Keeps handlers clean by centralizing error mapping.
func Map(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return svcErr.Status, svcErr.Msg

	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "record not found"

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"

	case errors.Is(err, context.Canceled):
		// 499: client closed request (nginx convention)
		return 499, "request was canceled"

	default:
		// fallback → bubble up error message for debugging
		return http.StatusInternalServerError, err.Error()
	}
}

// Write maps err and writes a JSON error body to w.
func Write(w http.ResponseWriter, err error) {
	status, msg := Map(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
