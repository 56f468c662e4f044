package dto

import "time"

// Credentials is the sign-up and login request body.
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation,omitempty"`
}

// SessionInfo describes the caller's session.
type SessionInfo struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}
