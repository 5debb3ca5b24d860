package validation

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	maxEmailLength = 254 // RFC 5321 path limit
	maxLocalLength = 64
)

var (
	ErrEmailRequired = errors.New("email address is required")
	ErrEmailTooLong  = errors.New("email address is too long (max 254 characters)")
	ErrEmailInvalid  = errors.New("invalid email address format")
)

// NormalizeEmail returns the canonical form used as the account key:
// trimmed and lowercased. Only a bare addr-spec is accepted, so
// "Bob <bob@dylan.com>" is rejected rather than silently unwrapped.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return "", ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", ErrEmailInvalid
	}

	at := strings.LastIndexByte(email, '@')
	if at > maxLocalLength || !strings.Contains(email[at+1:], ".") {
		return "", ErrEmailInvalid
	}

	return email, nil
}

// ValidateEmail reports whether email normalizes cleanly.
func ValidateEmail(email string) error {
	_, err := NormalizeEmail(email)
	return err
}
