package security

import (
	"bytes"
	"errors"
	"os"
	"strings"
)

// MinSecretLength is the shortest HS256 secret accepted, in bytes.
const MinSecretLength = 32

var (
	// ErrInvalidKey is returned when the signing secret is missing or unreadable.
	ErrInvalidKey = errors.New("invalid key")
	// ErrWeakSecret is returned when the signing secret is shorter than MinSecretLength.
	ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")
)

// LoadSecret returns the HS256 signing secret. s is the secret itself, or "file:<path>"
// to read it from a file (surrounding whitespace trimmed).
func LoadSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	var secret []byte
	if path, ok := strings.CutPrefix(s, "file:"); ok {
		b, err := os.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		secret = bytes.TrimSpace(b)
	} else {
		secret = []byte(s)
	}
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return secret, nil
}
