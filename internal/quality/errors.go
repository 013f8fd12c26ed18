package quality

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericErrorMessage is shown to callers for any failure that is not a
// validation error. The underlying cause is only ever logged.
const GenericErrorMessage = "An unexpected error occurred"

// ErrorKind classifies pipeline failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindInference
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindInference:
		return "inference"
	default:
		return "unexpected"
	}
}

// ValidationError reports a user-correctable problem with one input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "Invalid input: " + e.Reason
}

// InferenceError wraps a failure raised by the classifier.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// KindOf reports which kind of failure err is.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return KindValidation
	}
	var ierr *InferenceError
	if errors.As(err, &ierr) {
		return KindInference
	}
	return KindUnexpected
}

// MapHTTPStatus maps pipeline errors to HTTP status codes for the JSON API.
func MapHTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNone:
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to the caller for err.
func PublicMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return GenericErrorMessage
}
