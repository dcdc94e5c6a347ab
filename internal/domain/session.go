package domain

import "time"

// Session is a logged-in browser tab. The token carries the session id; the
// server keeps the client IP and tab id it was issued to.
type Session struct {
	ID        string
	Username  string
	IP        string
	TabID     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Matches reports whether a request from ip carrying tabID may use the
// session. Either the IP or the tab cookie has to match.
func (s Session) Matches(ip, tabID string) bool {
	return s.IP == ip || (tabID != "" && s.TabID == tabID)
}

// SessionStore keeps live sessions with an expiry.
type SessionStore interface {
	Get(id string) (Session, bool)
	Put(s Session, ttl time.Duration)
	Delete(id string)
	DeleteExpired()
	Len() int
}
