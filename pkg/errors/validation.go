package errors

import (
	"strings"
	"unicode"
)

// maxPathLength bounds host-supplied paths.
const maxPathLength = 4096

// ValidatePath validates a filesystem path received from a host payload.
// The field name is used in the error message.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//
// Relative paths and parent references are allowed: callers resolve them
// against their own working directory, the same as a shell would.
func ValidatePath(field, path string) error {
	if path == "" {
		return New(ErrCodeConfigInvalid, "%s cannot be empty", field)
	}

	if len(path) > maxPathLength {
		return New(ErrCodeConfigInvalid, "%s too long (max %d characters)", field, maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeConfigInvalid, "%s contains invalid characters: %q", field, path)
		}
	}

	return nil
}

// ValidatePaths validates every entry of a path list.
func ValidatePaths(field string, paths []string) error {
	for _, p := range paths {
		if err := ValidatePath(field, p); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFamilyName validates a font family name.
// Family names are free text but must be non-blank and free of control characters.
func ValidateFamilyName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeConfigInvalid, "%s cannot be blank", field)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeConfigInvalid, "%s contains invalid control characters", field)
		}
	}
	return nil
}
