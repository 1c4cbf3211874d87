package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidateCommand validates a generic graph command before it is handed to an
// analysis engine. Engine consoles interpret ';', '|', '`' and newlines as
// command separators or shell escapes, so a single command must not contain
// any of them.
//
// Validation rules:
//   - No empty commands
//   - Maximum length of 256 characters
//   - No control characters
//   - No separators, pipes, redirections or backticks
func ValidateCommand(cmd string) error {
	if strings.TrimSpace(cmd) == "" {
		return New(ErrCodeInvalidCommand, "command cannot be empty")
	}

	if len(cmd) > 256 {
		return New(ErrCodeInvalidCommand, "command too long (max 256 characters)")
	}

	for _, r := range cmd {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCommand, "command contains invalid control characters")
		}
	}

	for _, pattern := range []string{";", "|", "`", ">", "!"} {
		if strings.Contains(cmd, pattern) {
			return New(ErrCodeInvalidCommand, "command contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateOutputPath validates an export destination.
// The file name must be non-empty and the parent directory must not be a
// traversal outside the working tree when the path is relative.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "path must name a file: %q", path)
	}

	if !filepath.IsAbs(path) && strings.HasPrefix(filepath.Clean(path), "..") {
		return New(ErrCodeInvalidPath, "relative path cannot leave the working directory")
	}

	return nil
}

// addressRegex matches hexadecimal (0x-prefixed) or decimal addresses.
var addressRegex = regexp.MustCompile(`^(0[xX][0-9a-fA-F]{1,16}|[0-9]{1,20})$`)

// ValidateAddress checks that s is a plain numeric address literal.
// Symbolic expressions are rejected; resolve them in the engine first.
func ValidateAddress(s string) error {
	if !addressRegex.MatchString(s) {
		return New(ErrCodeInvalidInput, "invalid address: %q", s)
	}
	return nil
}
