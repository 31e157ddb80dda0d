// Package apperror defines the error taxonomy shared by the domain services:
// validation failures, missing entities, conflicts (slot races, duplicates)
// and authorization failures. Handlers translate these into HTTP responses;
// everything else surfaces as a 500.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
)

// Error is a structured, caller-facing error. Field is optional and names the
// input attribute the message refers to.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo HTTP error. The JSON body keeps
// the field attribution so clients can highlight the offending input.
func ToHTTP(err error) error {
	var ae *Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	body := map[string]string{"error": ae.Message}
	if ae.Field != "" {
		body["field"] = ae.Field
	}
	return echo.NewHTTPError(HTTPStatus(err), body)
}
