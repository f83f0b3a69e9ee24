package httputil

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidateURL checks that a URL is well-formed and uses HTTP or HTTPS.
// Streaming CDNs still serve plain-HTTP manifests, so http is allowed.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("only HTTP(S) URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// maxFilenameBytes keeps names well under the 255-byte limit common to
// Linux and macOS filesystems, leaving room for a format suffix.
const maxFilenameBytes = 200

// SanitizeFilename turns a page title into a single safe path element.
// Separators and characters Windows rejects become underscores, control
// characters become spaces, runs of whitespace collapse, leading dots are
// dropped and the result is cut to maxFilenameBytes on a rune boundary.
func SanitizeFilename(name string) string {
	return orUntitled(strings.TrimSpace(truncateUTF8(cleanName(name), maxFilenameBytes)))
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r == 0:
			return -1
		case r == '/' || r == '\\' || strings.ContainsRune(`:*?"<>|`, r):
			return '_'
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), " ")
	return strings.TrimLeft(name, ".")
}

func orUntitled(name string) string {
	if name == "" || name == "_" {
		return "untitled"
	}
	return name
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// SafeDownloadPath joins a cleaned filename onto dir and refuses any
// result that would land outside it. Unlike SanitizeFilename it does not
// shorten the name, so a suffix added after sanitizing survives.
func SafeDownloadPath(dir, filename string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, orUntitled(cleanName(filename)))

	rel, err := filepath.Rel(absDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes %q", full, absDir)
	}

	return full, nil
}
