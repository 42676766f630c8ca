package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Stored hashes use the form pbkdf2$sha256$<iterations>$<salt>$<digest>
// with base64 raw-url encoding for the binary parts.
const (
	hashScheme        = "pbkdf2"
	hashAlgo          = "sha256"
	defaultIterations = 210_000
	saltLength        = 16
	keyLength         = 32
)

// HashPassword derives a storable hash from a plaintext password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	digest := pbkdf2.Key([]byte(password), salt, defaultIterations, keyLength, sha256.New)
	return strings.Join([]string{
		hashScheme,
		hashAlgo,
		strconv.Itoa(defaultIterations),
		base64.RawURLEncoding.EncodeToString(salt),
		base64.RawURLEncoding.EncodeToString(digest),
	}, "$"), nil
}

// VerifyPassword checks a plaintext password against a stored hash in
// constant time.
func VerifyPassword(stored, password string) (bool, error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != hashScheme || parts[1] != hashAlgo {
		return false, fmt.Errorf("malformed password hash")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations < 1 {
		return false, fmt.Errorf("malformed iteration count")
	}
	salt, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return false, fmt.Errorf("malformed salt: %w", err)
	}
	want, err := base64.RawURLEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed digest: %w", err)
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
