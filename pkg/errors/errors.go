// Package errors provides coded errors for blendgen.
//
// Every failure that crosses a package boundary carries a [Code] so the CLI,
// the HTTP feed and library callers can branch on the category without
// matching strings. Errors raised while drawing a batch also carry key/value
// fields (batch, blend, object, band) that locate the failure; [Fields]
// collects them along the wrap chain in a form charmbracelet/log accepts.
//
// Code families:
//   - INVALID_*: options, catalogs and band names rejected at the boundary
//   - INVARIANT_VIOLATION: a sampling strategy broke a generator guarantee
//   - RENDER_FAILED: a renderer failed for a reason other than visibility
//   - NOT_FOUND, FILE_NOT_FOUND: missing batches or files
//   - INTERNAL_ERROR, UNSUPPORTED: everything else
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "max_number must be >= 1, got %d", n)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) { ... }
//
//	err = errors.Wrap(errors.ErrCodeRender, cause, "render object %d", k).With("band", "i")
//	logger.Error("draw failed", errors.Fields(err)...)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidCatalog Code = "INVALID_CATALOG"
	ErrCodeInvalidBand    Code = "INVALID_BAND"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	ErrCodeInvariant Code = "INVARIANT_VIOLATION"
	ErrCodeRender    Code = "RENDER_FAILED"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a coded error with an optional cause and location fields.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// fields holds alternating keys and values, e.g. "band", "i".
	fields []any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// With appends key/value location fields and returns e. An odd trailing
// key is dropped.
func (e *Error) With(kv ...any) *Error {
	if len(kv)%2 == 1 {
		kv = kv[:len(kv)-1]
	}
	e.fields = append(e.fields, kv...)
	return e
}

// New returns an Error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with code wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for other errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Fields returns "error", err, "code", code followed by the location fields
// of every *Error in the chain, outermost first. The result is ready to pass
// to a charmbracelet/log call.
func Fields(err error) []any {
	if err == nil {
		return nil
	}
	out := []any{"error", err}
	if code := GetCode(err); code != "" {
		out = append(out, "code", string(code))
	}
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if e, ok := cur.(*Error); ok {
			out = append(out, e.fields...)
		}
	}
	return out
}

// HTTPStatus maps err's code to a response status.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidConfig, ErrCodeInvalidBand, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeInvalidCatalog, ErrCodeInvariant:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
