package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is the server-side record of one issued refresh token. Only the
// SHA-256 of the token is kept.
type Session struct {
	ID        string
	AccountID string
	TokenHash [32]byte
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	Active    bool
}

// Valid reports whether the session is active and unexpired at now.
func (s Session) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// HashToken returns the SHA-256 digest of a raw refresh token.
func HashToken(raw string) [32]byte {
	return sha256.Sum256([]byte(raw))
}

// HashHex is the lower-case hex form of a token hash, used as a lookup key.
func HashHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
