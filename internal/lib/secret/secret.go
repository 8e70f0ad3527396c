package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 32

// New returns a URL-safe random token with 256 bits of entropy, used for the
// single-use email-verification and password-reset tokens.
func New() (string, error) {
	const op = "secret.New"

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
