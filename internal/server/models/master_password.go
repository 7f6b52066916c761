package models

import "time"

// MasterPassword is the single record that lets the server check a master
// password. It holds the salt, the PBKDF2 work factor and the digest of the
// derived key, never the password or the key.
type MasterPassword struct {
	ID               int64
	VerificationHash []byte
	Salt             []byte
	Iterations       int
	CreatedAt        time.Time
}
