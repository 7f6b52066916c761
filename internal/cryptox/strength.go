package cryptox

import "strings"

// MaxStrengthScore is the highest score PasswordStrength can return.
const MaxStrengthScore = 7

// Strength is a coarse, rule-based rating of a password.
type Strength struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Label    string `json:"label"`
}

// PasswordStrength scores p one point for each of: length >= 8, >= 12,
// >= 16, a lowercase letter, an uppercase letter, a digit, a symbol from the
// generator's symbol set.
func PasswordStrength(p string) Strength {
	score := 0
	n := len([]rune(p))
	for _, min := range []int{8, 12, 16} {
		if n >= min {
			score++
		}
	}

	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(symbolChars, r):
			symbol = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}

	return Strength{Score: score, MaxScore: MaxStrengthScore, Label: strengthLabel(score)}
}

func strengthLabel(score int) string {
	switch {
	case score <= 2:
		return "Weak"
	case score <= 4:
		return "Fair"
	case score <= 6:
		return "Strong"
	default:
		return "Very Strong"
	}
}
