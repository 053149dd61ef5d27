package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2Iterations = 210000

// HashPassword derives a PBKDF2-SHA256 digest with a fresh random salt.
// Both values are hex-encoded for storage.
func HashPassword(password string) (salt, digest string, err error) {
	if password == "" {
		return "", "", errors.New("password cannot be empty")
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	salt = hex.EncodeToString(raw)
	return salt, hashWithSalt(password, salt), nil
}

// VerifyPassword checks a candidate password in constant time.
func VerifyPassword(password, salt, expected string) bool {
	return hmac.Equal([]byte(hashWithSalt(password, salt)), []byte(expected))
}

func hashWithSalt(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}
