// Package errs defines the error taxonomy shared by every core component.
// Services return these sentinels (usually wrapped with context via fmt.Errorf
// and %w); the HTTP layer maps them to status codes with Status.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrTooExpensive is returned when a transaction would drive a balance negative.
	ErrTooExpensive = errors.New("transaction exceeds available balance")

	// ErrMustBeUnique is returned on a duplicate over a unique logical key.
	ErrMustBeUnique = errors.New("value must be unique")

	// ErrOutOfScope is returned when a token requests permissions it does not hold.
	ErrOutOfScope = errors.New("requested permissions are out of scope")

	// ErrNotAllowed covers authentication, authorization, captcha and policy failures.
	ErrNotAllowed = errors.New("not allowed")

	// ErrValue is returned when a field fails validation (length, regex, shape).
	ErrValue = errors.New("invalid value")

	// ErrNotFound is returned when an entity is absent or hidden.
	// Blocked viewers are intentionally given ErrNotFound so block state does not leak.
	ErrNotFound = errors.New("not found")

	// ErrTooLong is returned when a length cap is exceeded.
	ErrTooLong = errors.New("value is too long")

	// ErrOther covers storage, filesystem and remote failures.
	ErrOther = errors.New("internal failure")
)

// Status maps a taxonomy error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotAllowed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
