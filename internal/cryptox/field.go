package cryptox

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kaplunov-alex/PWMgr/internal/common"
)

const fieldSeparator = ":"

// String encodes the field as "<base64 nonce>:<base64 ciphertext>" using
// padded standard base64. Stored data depends on this exact layout.
func (f *EncryptedField) String() string {
	return base64.StdEncoding.EncodeToString(f.Nonce) + fieldSeparator +
		base64.StdEncoding.EncodeToString(f.Ciphertext)
}

// ParseEncryptedField decodes the String form. Anything other than two
// valid base64 parts returns common.ErrMalformedInput.
func ParseEncryptedField(s string) (*EncryptedField, error) {
	parts := strings.Split(s, fieldSeparator)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected 2 parts, got %d", common.ErrMalformedInput, len(parts))
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", common.ErrMalformedInput, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", common.ErrMalformedInput, err)
	}

	return &EncryptedField{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// EncryptString is Encrypt followed by String.
func EncryptString(plaintext string, key []byte) (string, error) {
	field, err := Encrypt(plaintext, key)
	if err != nil {
		return "", err
	}
	return field.String(), nil
}

// DecryptString is ParseEncryptedField followed by Decrypt.
func DecryptString(encoded string, key []byte) (string, error) {
	field, err := ParseEncryptedField(encoded)
	if err != nil {
		return "", err
	}
	return Decrypt(field, key)
}
