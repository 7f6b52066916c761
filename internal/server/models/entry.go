package models

import "time"

// Entry is a stored credential. EncryptedPassword and EncryptedNotes hold
// "<base64 nonce>:<base64 ciphertext>" strings; EncryptedNotes is empty when
// the entry has no notes.
type Entry struct {
	ID                int64     `json:"id"`
	SiteName          string    `json:"site_name"`
	Username          string    `json:"username"`
	EncryptedPassword string    `json:"encrypted_password"`
	EncryptedNotes    string    `json:"encrypted_notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
