// Package errors provides structured error types for svgpng.
//
// Every fallible operation in the conversion pipeline returns an *Error
// carrying a machine-readable code. The host boundary turns these into
// tagged failure values, so callers never see a panic or a bare string.
//
// # Error Codes
//
// Codes are grouped by the stage that produces them:
//   - CONFIG_*: the configuration payload was rejected before any I/O
//   - IO_*: a source document or font file could not be read
//   - FORMAT_*: the source bytes are not a gzip stream, UTF-8 text or SVG markup
//   - GEOMETRY_*: the requested output size is impossible
//   - ENCODE: the PNG could not be encoded or written
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfigColor, "invalid background color: %q", s)
//	if errors.Is(err, errors.ErrCodeConfigColor) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIORead, origErr, "failed to read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeConfigInvalid       Code = "CONFIG_INVALID"
	ErrCodeConfigResourcesDir  Code = "CONFIG_RESOURCES_DIR"
	ErrCodeConfigRenderingMode Code = "CONFIG_RENDERING_MODE"
	ErrCodeConfigColor         Code = "CONFIG_COLOR"
	ErrCodeConfigLanguage      Code = "CONFIG_LANGUAGE"

	// I/O errors
	ErrCodeIORead Code = "IO_READ"
	ErrCodeIOFont Code = "IO_FONT"

	// Source format errors
	ErrCodeFormatDecompress Code = "FORMAT_DECOMPRESS"
	ErrCodeFormatEncoding   Code = "FORMAT_ENCODING"
	ErrCodeFormatParse      Code = "FORMAT_PARSE"

	// Geometry errors
	ErrCodeGeometryZeroSize Code = "GEOMETRY_ZERO_SIZE"
	ErrCodeGeometryTooLarge Code = "GEOMETRY_TOO_LARGE"

	// Output errors
	ErrCodeEncode Code = "ENCODE"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Category groups codes into the failure classes reported to hosts.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryIO       Category = "io"
	CategoryFormat   Category = "format"
	CategoryGeometry Category = "geometry"
	CategoryEncode   Category = "encode"
	CategoryInternal Category = "internal"
)

var categories = map[Code]Category{
	ErrCodeConfigInvalid:       CategoryConfig,
	ErrCodeConfigResourcesDir:  CategoryConfig,
	ErrCodeConfigRenderingMode: CategoryConfig,
	ErrCodeConfigColor:         CategoryConfig,
	ErrCodeConfigLanguage:      CategoryConfig,
	ErrCodeIORead:              CategoryIO,
	ErrCodeIOFont:              CategoryIO,
	ErrCodeFormatDecompress:    CategoryFormat,
	ErrCodeFormatEncoding:      CategoryFormat,
	ErrCodeFormatParse:         CategoryFormat,
	ErrCodeGeometryZeroSize:    CategoryGeometry,
	ErrCodeGeometryTooLarge:    CategoryGeometry,
	ErrCodeEncode:              CategoryEncode,
	ErrCodeInternal:            CategoryInternal,
}

// CategoryOf returns the failure class of a code.
// Unknown codes are reported as internal.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryInternal
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Errors that are not an *Error report ErrCodeInternal.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message and its cause without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
