package model

import "time"

// User is a credential record keyed by Username.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session identifies the authenticated caller of a request.
type Session struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session belongs to someone and has not expired.
func (s Session) Valid(now time.Time) bool {
	return s.Username != "" && now.Before(s.ExpiresAt)
}
