// Package cryptox implements the vault's cryptographic primitives: password
// based key derivation, the master-password verification hash, the AES-GCM
// field envelope and the random password generator.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length in bytes of a master password salt.
	SaltSize = 32
	// KeySize is the length in bytes of a derived AES-256 key.
	KeySize = 32
	// DefaultIterations is the PBKDF2 work factor used when none is given.
	DefaultIterations = 600_000
)

// GenerateSalt returns SaltSize bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cannot generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches password with PBKDF2-HMAC-SHA256 into a KeySize key.
// The result is a pure function of (password, salt, iterations); iterations
// <= 0 means DefaultIterations.
func DeriveKey(password string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha256.New)
}

// MakeVerifier returns the SHA-256 digest of derived key material.
func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// DeriveVerificationHash derives the key for password and returns only its
// digest. This is the value stored for login checks; the key itself is never
// persisted.
func DeriveVerificationHash(password string, salt []byte, iterations int) []byte {
	key := DeriveKey(password, salt, iterations)
	defer wipe(key)
	return MakeVerifier(key)
}

// VerifyHash compares two verification hashes in constant time.
func VerifyHash(stored, candidate []byte) bool {
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
