// Package apierror defines the error taxonomy of spec.md §7 and the
// mapping each kind carries to an HTTP status at the edge.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error categories from spec.md §7.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindNotFound    Kind = "not_found"
	KindBoardAPI    Kind = "board_api_error"
	KindLLM         Kind = "llm_error"
	KindPersistence Kind = "persistence_error"
	KindInternal    Kind = "internal_error"
)

// Error is a typed error carrying a Kind plus optional structured details,
// mirroring the {status, message, code?, details?} shape spec.md §7
// requires at the edge.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func Validation(message string) *Error            { return newErr(KindValidation, message, nil) }
func NotFound(message string) *Error              { return newErr(KindNotFound, message, nil) }
func BoardAPI(message string, cause error) *Error { return newErr(KindBoardAPI, message, cause) }
func LLM(message string, cause error) *Error      { return newErr(KindLLM, message, cause) }
func Persistence(message string, cause error) *Error {
	return newErr(KindPersistence, message, cause)
}
func Internal(message string, cause error) *Error { return newErr(KindInternal, message, cause) }

// WithDetails attaches structured detail fields and returns the receiver
// for chaining.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// HTTPStatus maps a Kind to the HTTP status spec.md §7 assigns it.
func HTTPStatus(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case KindValidation:
			return http.StatusBadRequest
		case KindNotFound:
			return http.StatusNotFound
		case KindBoardAPI:
			return http.StatusBadGateway
		case KindLLM:
			return http.StatusBadGateway
		case KindPersistence:
			return http.StatusInternalServerError
		case KindInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
