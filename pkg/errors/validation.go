package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxDocumentNameLength bounds names used as storage keys.
const maxDocumentNameLength = 128

// documentNameRegex matches names accepted by the storage backends.
var documentNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateDocumentName validates a stored document name for safety.
// Names are used verbatim as file names, Redis keys and MongoDB ids, so the
// rules are conservative:
//   - No empty names
//   - Maximum length of 128 characters
//   - No control characters
//   - No path separators or traversal sequences
//   - Must start with a letter or digit
func ValidateDocumentName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "document name cannot be empty")
	}
	if len(name) > maxDocumentNameLength {
		return New(ErrCodeInvalidInput, "document name too long (max %d characters)", maxDocumentNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "document name contains invalid control characters")
		}
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidInput, "document name cannot contain %q", "..")
	}
	if !documentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid document name: %q", name)
	}
	return nil
}

// ValidateDocumentPath validates a path given for a document file.
// The path must be non-empty, free of null bytes and end in ".json".
func ValidateDocumentPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "no file name specified")
	}
	if strings.ContainsRune(path, '\x00') {
		return New(ErrCodeInvalidPath, "path contains invalid characters")
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return New(ErrCodeInvalidPath, "document files must have a .json extension: %s", path)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	return nil
}
