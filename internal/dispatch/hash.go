package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// normalizePII is the canonical form hashed for ad platforms: NFC, trimmed,
// lower-cased.
func normalizePII(v string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(v)))
}

func sha256Hex(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// hashField returns the one-element list ad APIs expect, or nil for blanks.
func hashField(v string) []string {
	n := normalizePII(v)
	if n == "" {
		return nil
	}
	return []string{sha256Hex(n)}
}

// hashPhone hashes the digits of a phone number only.
func hashPhone(v string) []string {
	digits := digitsOnly(v)
	if digits == "" {
		return nil
	}
	return []string{sha256Hex(digits)}
}

// hashCompact hashes a field after dropping spaces and punctuation, as used
// for city and postal code matching.
func hashCompact(v string) []string {
	n := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, normalizePII(v))
	if n == "" {
		return nil
	}
	return []string{sha256Hex(n)}
}

func digitsOnly(v string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, v)
}

// splitName splits a full name into first and last. Single names have no last.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}
