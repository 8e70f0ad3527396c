package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash derives a salted bcrypt digest from a plaintext password. The cost
// factor is clamped to bcrypt's supported range; zero means DefaultCost.
func Hash(plain string, cost int) (string, error) {
	const op = "password.Hash"

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(digest), nil
}

// Verify reports whether plain matches the stored digest. A malformed digest
// verifies as false rather than failing.
func Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
