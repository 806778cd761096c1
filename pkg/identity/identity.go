// Package identity derives non-reversible lookup keys from contact data.
//
// Raw emails and phone numbers are never persisted; every store keys on the
// SHA-256 digest of the normalized value. Normalization happens here so the
// same contact always maps to the same digest regardless of formatting.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDigest returns the hex SHA-256 digest of the normalized email.
// This is the clientIdentity used as the primary submission key.
func EmailDigest(email string) string {
	return digest(NormalizeEmail(email))
}

// EmailDomain extracts the domain part of an email address. The domain is
// not a personal identifier and may be stored in the clear.
func EmailDomain(email string) string {
	normalized := NormalizeEmail(email)
	at := strings.LastIndexByte(normalized, '@')
	if at < 0 || at == len(normalized)-1 {
		return ""
	}
	return normalized[at+1:]
}

// NormalizePhone strips formatting from a phone number, keeping digits and a
// single leading plus sign.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if unicode.IsDigit(r) || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneDigest returns the hex SHA-256 digest of the normalized phone number.
func PhoneDigest(phone string) string {
	return digest(NormalizePhone(phone))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
