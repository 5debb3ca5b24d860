package validation

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxNameBytes bounds a stored file or folder name
const MaxNameBytes = 255

// NormalizeName validates a file or folder name and returns it in Unicode NFC
// form, so visually identical names compare equal regardless of client encoding.
func NormalizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("name is required")
	}

	normalized := norm.NFC.String(name)

	if len(normalized) > MaxNameBytes {
		return "", errors.New("name is too long (max 255 bytes)")
	}

	if strings.ContainsRune(normalized, 0) {
		return "", errors.New("name must not contain NUL characters")
	}

	return normalized, nil
}
