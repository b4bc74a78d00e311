package utils

import (
	"crypto/sha256"
	"regexp"
	"strings"
	"unicode/utf8"
)

// StringPtr returns a pointer to a string, or nil if empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ContainsString checks if a string slice contains a specific string.
func ContainsString(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// BytesToInt converts a byte slice (e.g., from SHA256 sum) to an int64.
// Used for generating a deterministic seed from a hash.
func BytesToInt(b []byte) int64 {
	// Take the first 8 bytes (or less if available) to fit into int64
	var i int64
	for idx, val := range b {
		if idx >= 8 {
			break
		}
		i = (i << 8) | int64(val)
	}
	return i
}

// SeedFrom derives a shuffle seed from arbitrary parts.
func SeedFrom(parts ...string) int64 {
	h := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return BytesToInt(h[:])
}

// Excerpt shortens text to at most n runes, appending an ellipsis when cut.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:n])) + "…"
}

// inlineMath matches $$...$$, $...$ and \( ... \) spans.
var inlineMath = regexp.MustCompile(`(?s)\$\$.*?\$\$|\$.*?\$|\\\(.*?\\\)`)

// DisplayStyleIntegrals prefixes \displaystyle to inline math containing \int
// so integrals are typeset at full size. Display math ($$...$$) is left alone.
func DisplayStyleIntegrals(text string) string {
	if text == "" {
		return text
	}
	return inlineMath.ReplaceAllStringFunc(text, func(s string) string {
		switch {
		case strings.HasPrefix(s, "$$"):
			return s
		case strings.HasPrefix(s, `\(`):
			inner := s[2 : len(s)-2]
			if strings.Contains(inner, `\int`) && !strings.Contains(inner, `\displaystyle`) {
				return `\(\displaystyle ` + inner + `\)`
			}
			return s
		default:
			inner := s[1 : len(s)-1]
			if strings.Contains(inner, `\int`) && !strings.Contains(inner, `\displaystyle`) {
				return `$\displaystyle ` + inner + `$`
			}
			return s
		}
	})
}
