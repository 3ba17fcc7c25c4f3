package domain

import "time"

// SessionDuration is the fixed lifetime of a login session. The signed token
// and the database row expire together.
const SessionDuration = 7 * 24 * time.Hour

// Session represents one authenticated device. The database row is the source
// of truth for listing and revocation; the signed cookie token carries the
// same identifier and authenticates individual requests.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Device       string    `json:"device,omitempty"`
	Browser      string    `json:"browser,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	// Current marks the row matching the caller's own token in listings.
	// Not persisted.
	Current bool `json:"current"`
}

// IsExpired reports whether the session's expiry has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
