package validation

import (
	"errors"
)

// ValidatePassword checks the limits bcrypt imposes on a password
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	// Maximum length: 72 bytes (bcrypt limitation)
	// bcrypt silently truncates passwords longer than 72 bytes, which is a security risk
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	return nil
}
