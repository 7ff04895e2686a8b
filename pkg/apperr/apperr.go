package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for the engine's error taxonomy. Callers match with
// errors.Is; the HTTP layer maps a kind to a status via HTTPStatus.
var (
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("request expired")
	ErrUnavailable = errors.New("upstream unavailable")
)

// Validationf wraps a formatted message with ErrValidation
func Validationf(format string, args ...interface{}) error {
	return wrapf(ErrValidation, format, args...)
}

// Forbiddenf wraps a formatted message with ErrForbidden
func Forbiddenf(format string, args ...interface{}) error {
	return wrapf(ErrForbidden, format, args...)
}

// Conflictf wraps a formatted message with ErrConflict
func Conflictf(format string, args ...interface{}) error {
	return wrapf(ErrConflict, format, args...)
}

// NotFoundf wraps a formatted message with ErrNotFound
func NotFoundf(format string, args ...interface{}) error {
	return wrapf(ErrNotFound, format, args...)
}

// Expiredf wraps a formatted message with ErrExpired
func Expiredf(format string, args ...interface{}) error {
	return wrapf(ErrExpired, format, args...)
}

// Unavailablef wraps a formatted message with ErrUnavailable
func Unavailablef(format string, args ...interface{}) error {
	return wrapf(ErrUnavailable, format, args...)
}

func wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), kind)
}

// Retriable reports whether a job-level retry makes sense for err.
// Validation, authorization, conflict and not-found outcomes are final.
func Retriable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrExpired):
		return false
	}
	return true
}

// HTTPStatus maps an error kind to its HTTP-equivalent status code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
