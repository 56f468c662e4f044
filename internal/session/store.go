// Package session keeps the in-memory table of logged-in sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"petlens/internal/model"
)

// Store maps session tokens to sessions. Sessions do not survive a restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]model.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a new session for username.
func (s *Store) Create(username string) model.Session {
	sess := model.Session{
		Token:     uuid.NewString(),
		Username:  username,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	return sess
}

// Lookup returns the live session for token. Expired sessions are dropped.
func (s *Store) Lookup(token string) (model.Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return model.Session{}, false
	}
	if !sess.Valid(s.now()) {
		s.Revoke(token)
		return model.Session{}, false
	}
	return sess, true
}

// Revoke ends the session for token, if any.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Count returns the number of stored sessions, expired ones included.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
