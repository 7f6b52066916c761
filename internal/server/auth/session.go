package auth

import "github.com/kaplunov-alex/PWMgr/internal/common"

// SessionKeyContext holds the symmetric key bound to one authenticated
// session. It lives only in memory.
type SessionKeyContext struct {
	Key []byte `json:"-"`
}

// Wipe zeroes the key material.
func (c *SessionKeyContext) Wipe() {
	if c == nil {
		return
	}
	common.WipeByteArray(c.Key)
	c.Key = nil
}

// Session is the capability the transport layer hands to the service for
// one client session.
type Session interface {
	// Key returns a copy of the bound key. The caller owns the copy and
	// wipes it when done; the session only ever wipes its own buffer.
	Key() (*SessionKeyContext, bool)
	SetKey(*SessionKeyContext)
	// Invalidate discards the whole session, including its key.
	Invalidate()
}
