package services

import "github.com/kaplunov-alex/PWMgr/internal/cryptox"

const DefaultGeneratedLength = 16

type GeneratedPassword struct {
	Password string           `json:"password"`
	Strength cryptox.Strength `json:"strength"`
}

// GeneratePassword draws a random password and scores it.
func (s *EntryService) GeneratePassword(length int, opts cryptox.PasswordOptions) (*GeneratedPassword, error) {
	p, err := cryptox.GeneratePassword(length, opts)
	if err != nil {
		return nil, err
	}
	return &GeneratedPassword{Password: p, Strength: cryptox.PasswordStrength(p)}, nil
}
