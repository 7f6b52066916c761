package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/kaplunov-alex/PWMgr/internal/common"
)

// NonceSize is the standard GCM nonce length.
const NonceSize = 12

// EncryptedField is one encrypted secret. The nonce travels with the
// ciphertext; neither is useful without the other.
type EncryptedField struct {
	Ciphertext []byte
	Nonce      []byte
}

// GenerateNonce returns NonceSize bytes from crypto/rand.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cannot generate nonce: %w", err)
	}
	return nonce, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cannot create aes block cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cannot create gcm cipher: %w", err)
	}
	return gcm, nil
}

// Encrypt seals the UTF-8 bytes of plaintext with AES-256-GCM under key.
//
// A new random 12-byte nonce is generated for every call, so encrypting the
// same plaintext twice under the same key yields different ciphertexts.
// The returned ciphertext carries the 16-byte authentication tag.
//
// Example:
//
//	field, err := cryptox.Encrypt("hunter2", sessionKey)
//	if err != nil {
//	    return err
//	}
//	stored := field.String() // "<base64 nonce>:<base64 ciphertext>"
func Encrypt(plaintext string, key []byte) (*EncryptedField, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	return &EncryptedField{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// Decrypt opens field under key. A tag mismatch, which means a wrong key or
// a modified ciphertext or nonce, returns common.ErrAuthenticationFailure.
func Decrypt(field *EncryptedField, key []byte) (string, error) {
	if field == nil || len(field.Nonce) != NonceSize {
		return "", common.ErrMalformedInput
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, field.Nonce, field.Ciphertext, nil)
	if err != nil {
		return "", common.ErrAuthenticationFailure
	}

	return string(plaintext), nil
}
