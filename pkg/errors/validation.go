package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// bandNameRegex matches filter band identifiers such as "i", "HSC-I" or "y_3".
var bandNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,15}$`)

// ValidateBandName validates a single band identifier.
func ValidateBandName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidBand, "band name cannot be empty")
	}
	if !bandNameRegex.MatchString(name) {
		return New(ErrCodeInvalidBand, "invalid band name: %q", name)
	}
	return nil
}

// ValidateBands validates an ordered band list.
// The list must be non-empty and every band must be unique.
func ValidateBands(bands []string) error {
	if len(bands) == 0 {
		return New(ErrCodeInvalidBand, "at least one band is required")
	}
	seen := make(map[string]bool, len(bands))
	for _, b := range bands {
		if err := ValidateBandName(b); err != nil {
			return err
		}
		if seen[b] {
			return New(ErrCodeInvalidBand, "duplicate band: %q", b)
		}
		seen[b] = true
	}
	return nil
}

// ValidateOutputPath validates a directory or file path that blendgen will
// write to.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..) after cleaning
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
