package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds node IDs and saved layout names.
const MaxNameLength = 256

// ValidateNodeID rejects empty IDs, control characters and overly long IDs.
// Node IDs end up in DOT sources, cache keys and database rows.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGraph, "node id cannot be empty")
	}
	if len(id) > MaxNameLength {
		return New(ErrCodeInvalidGraph, "node id too long (max %d characters)", MaxNameLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidGraph, "node id %q contains control characters", id)
		}
	}
	return nil
}

// ValidateLayoutName validates the display name of a saved layout.
// An empty name is allowed; the store falls back to the layout ID.
func ValidateLayoutName(name string) error {
	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidInput, "layout name too long (max %d characters)", MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "layout name contains invalid control characters")
		}
	}
	return nil
}

// ValidatePath validates a relative output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}
