package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeText canonicalises a fragment's text for cache identity:
// leading and trailing whitespace is trimmed and every internal run of
// whitespace (spaces, tabs, newlines) collapses to a single space.
// Two fragments differing only in whitespace therefore share a cache
// entry. The visible text sent to the provider is NOT normalised;
// normalisation applies to cache keys only.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inRun := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			inRun = true
			continue
		}
		if inRun {
			b.WriteByte(' ')
			inRun = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CacheKey derives the content-addressed cache key for a translation:
// SHA-256 over the normalised text, target language and model, with
// NUL separators so no concatenation of fields can collide with
// another. The hex form is safe for any key-value backend.
func CacheKey(original, targetLanguage, model string) string {
	h := sha256.New()
	h.Write([]byte(NormalizeText(original)))
	h.Write([]byte{0})
	h.Write([]byte(targetLanguage))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}
