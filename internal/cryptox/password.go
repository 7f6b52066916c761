package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/kaplunov-alex/PWMgr/internal/common"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

const (
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// PasswordOptions selects the character classes of a generated password.
type PasswordOptions struct {
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

// DefaultPasswordOptions enables every class.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{Upper: true, Lower: true, Digits: true, Symbols: true}
}

func (o PasswordOptions) pool() string {
	var sb strings.Builder
	if o.Upper {
		sb.WriteString(upperChars)
	}
	if o.Lower {
		sb.WriteString(lowerChars)
	}
	if o.Digits {
		sb.WriteString(digitChars)
	}
	if o.Symbols {
		sb.WriteString(symbolChars)
	}
	if sb.Len() == 0 {
		return lowerChars + upperChars + digitChars
	}
	return sb.String()
}

// GeneratePassword draws length characters uniformly and independently from
// the pool selected by opts, using crypto/rand. With no class selected the
// pool is alphanumeric.
//
// Sampling is over the combined pool, so a requested class is not
// guaranteed to appear in the result.
func GeneratePassword(length int, opts PasswordOptions) (string, error) {
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("%w: password length must be between %d and %d",
			common.ErrValidation, MinPasswordLength, MaxPasswordLength)
	}

	pool := opts.pool()
	max := big.NewInt(int64(len(pool)))

	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("cannot draw random index: %w", err)
		}
		out[i] = pool[n.Int64()]
	}

	return string(out), nil
}
