package schema

import "time"

// Session is the authenticated-session credential set. One slot exists
// process-wide; it is created by login or an external sync push,
// refreshed near expiry, and destroyed on logout.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the session is expired or expires
// within the margin, measured from now.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(s.ExpiresAt)
}
