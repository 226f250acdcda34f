package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// MaxPromptLength bounds the text sent alongside a snapshot to the evolve
// service.
const MaxPromptLength = 2000

// ValidatePrompt validates an evolve prompt.
//
// Validation rules:
//   - Prompt cannot be empty or whitespace only
//   - Maximum length of MaxPromptLength runes
//   - No null bytes or control characters other than newline and tab
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return New(ErrCodeInvalidInput, "prompt is required")
	}

	if n := len([]rune(prompt)); n > MaxPromptLength {
		return New(ErrCodeInvalidInput, "prompt too long (%d > %d characters)", n, MaxPromptLength)
	}

	for _, r := range prompt {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "prompt contains invalid control characters")
		}
	}

	return nil
}

// ValidateURL validates an endpoint URL.
// It ensures the URL parses and has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL must include a host")
	}

	return nil
}

// ValidateOutputPath validates a snapshot destination path.
// Snapshots are always PNG, so the extension must be .png when present.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "output path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output path contains invalid characters")
		}
	}

	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		if ext := strings.ToLower(path[i:]); ext != ".png" {
			return New(ErrCodeInvalidInput, "snapshots are PNG; unsupported extension %q", ext)
		}
	}

	return nil
}
