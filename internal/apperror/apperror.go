// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; only the HTTP layer translates them into
// status codes (see handler.writeError). Each AppError carries a sentinel
// (for errors.Is), a human-readable Message that is safe to show to users,
// and optionally the underlying Cause, which is logged but never returned.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
	ErrTimeout      = errors.New("timeout")
	ErrStorage      = errors.New("storage failure")
)

// GenerateFailedMessage is the only text a user ever sees when outfit
// generation fails, whatever the underlying cause.
const GenerateFailedMessage = "We couldn't generate your outfit, please try again"

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, never shown to users
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// either apperror.ErrUpstream or, say, context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NoCache signals that a cache-only lookup found nothing. It is a NotFound,
// not a failure: the caller asked to check the cache and nothing else.
func NoCache(handle string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("no cached outfit for @%s", handle),
		Field:   "handle",
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when credentials are missing or wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a failure of an external provider. The message is always
// the generic retry text.
func Upstream(cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: GenerateFailedMessage,
		Cause:   cause,
	}
}

// Timeout wraps a deadline or cancellation hit while waiting on a provider.
func Timeout(cause error) *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: GenerateFailedMessage,
		Cause:   cause,
	}
}

// Storage wraps a cache read or write failure.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("storage: %s failed", op),
		Cause:   cause,
	}
}
