package registry

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

const saltSize = 32

// hashPassword returns a Guacamole-compatible digest and the salt it used.
func hashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return digest(password, salt), salt, nil
}

func digest(password string, salt []byte) []byte {
	sum := sha256.Sum256([]byte(password + strings.ToUpper(hex.EncodeToString(salt))))
	return sum[:]
}

// VerifyPassword reports whether password matches a stored hash and salt.
func VerifyPassword(password string, hash, salt []byte) bool {
	return subtle.ConstantTimeCompare(digest(password, salt), hash) == 1
}
