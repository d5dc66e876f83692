// Package handle validates and normalizes social handles.
//
// Three forms of a handle exist:
//
//	raw        "@Vitalik "   whatever the client sent
//	clean      "Vitalik"     leading @ stripped, whitespace trimmed, case kept
//	normalized "vitalik"     clean + lowercased; the cache key
//
// Style assignment hashes the clean form. Storage keys use the normalized form.
package handle

import (
	"regexp"
	"strings"

	"github.com/JuampiHernandez/raave-outfit/internal/apperror"
)

// MaxLength is the longest handle accepted (GitHub's limit; X allows fewer).
const MaxLength = 39

var pattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,39}$`)

// Clean strips surrounding whitespace and one leading "@".
func Clean(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// Normalize returns the cache key for raw. It does not validate.
func Normalize(raw string) string {
	return strings.ToLower(Clean(raw))
}

// Validate cleans raw and checks it against the allowed alphabet and length.
// It returns the clean (case-preserving) handle.
func Validate(raw string) (string, error) {
	h := Clean(raw)
	if h == "" {
		return "", apperror.ValidationFailed("handle", "handle is required")
	}
	if !pattern.MatchString(h) {
		return "", apperror.ValidationFailed("handle",
			"handle must be 1-39 characters of letters, digits, underscores or hyphens")
	}
	return h, nil
}
