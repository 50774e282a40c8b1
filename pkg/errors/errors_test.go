package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewAndWrap(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "max_number must be >= 1, got %d", 0)
	if want := "INVALID_CONFIG: max_number must be >= 1, got 0"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	cause := errors.New("psf fwhm is zero")
	wrapped := Wrap(ErrCodeRender, cause, "render object %d", 2)
	if want := "RENDER_FAILED: render object 2: psf fwhm is zero"; wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is(wrapped, cause) = false")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeInvariant, "x"), ErrCodeInvariant, true},
		{"other code", New(ErrCodeInvariant, "x"), ErrCodeRender, false},
		{"plain error", errors.New("x"), ErrCodeInternal, false},
		{"through fmt wrap", fmt.Errorf("batch 3: %w", New(ErrCodeRender, "x")), ErrCodeRender, true},
		{"outermost wins", Wrap(ErrCodeInvalidCatalog, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeInvalidCatalog, true},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeInvalidBand, "survey lsst has no %q band", "q")); got != `survey lsst has no "q" band` {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestFields(t *testing.T) {
	inner := Wrap(ErrCodeRender, errors.New("boom"), "render object 1").With("object", 1, "band", "i")
	err := fmt.Errorf("batch 0 blend 2: %w", inner)

	got := Fields(err)
	if len(got) < 2 || got[0] != "error" || got[1] != err {
		t.Fatalf("Fields() should start with the error, got %v", got)
	}
	want := []any{"code", "RENDER_FAILED", "object", 1, "band", "i"}
	if diff := cmp.Diff(want, got[2:]); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}

	if Fields(nil) != nil {
		t.Error("Fields(nil) should be nil")
	}
	if got := Fields(errors.New("plain")); len(got) != 2 {
		t.Errorf("Fields(plain) = %v, want only the error", got)
	}
}

func TestWithDropsOddKey(t *testing.T) {
	err := New(ErrCodeRender, "x").With("band", "i", "dangling")
	if got := len(Fields(err)); got != 6 {
		t.Errorf("len(Fields) = %d, want 6", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{New(ErrCodeInvalidConfig, "x"), http.StatusBadRequest},
		{New(ErrCodeInvalidCatalog, "x"), http.StatusUnprocessableEntity},
		{New(ErrCodeNotFound, "x"), http.StatusNotFound},
		{New(ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{New(ErrCodeRender, "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
