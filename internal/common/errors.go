package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies application errors into the taxonomy callers branch on.
type Kind string

const (
	KindUnsupportedFormat  Kind = "UNSUPPORTED_FORMAT"
	KindEmptyExtraction    Kind = "EMPTY_EXTRACTION"
	KindExtractionFormat   Kind = "EXTRACTION_FORMAT"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindEmptyCorpus        Kind = "EMPTY_CORPUS"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindInternal           Kind = "INTERNAL"
)

// Error carries a classified kind alongside the usual wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// E constructs a classified error.
func E(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf walks the error chain for the outermost classified kind.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// HTTPStatus maps an error kind to the status the transport layer responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnsupportedFormat, KindEmptyExtraction, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindEmptyCorpus:
		return http.StatusConflict
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
