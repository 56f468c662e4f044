package community

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/repository"
	"petlens/internal/session"
)

// AccountService handles sign-up, login and logout.
type AccountService struct {
	store    repository.BlobStore
	sessions *session.Store
	logger   *logger.Logger
	cost     int

	// mu makes the exists-then-create check in SignUp atomic.
	mu sync.Mutex
}

// NewAccountService creates an AccountService.
func NewAccountService(store repository.BlobStore, sessions *session.Store, logger *logger.Logger) *AccountService {
	return &AccountService{
		store:    store,
		sessions: sessions,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// SignUp stores a new user. Nothing is written unless the password and its
// confirmation match and the username is free.
func (s *AccountService) SignUp(ctx context.Context, username, password, confirmation string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingField
	}
	if password != confirmation {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists, err := s.store.Get(ctx, userKey(username))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	user := model.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := saveJSON(ctx, s.store, userKey(username), user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("User %s signed up", username)
	return &user, nil
}

// Login checks the credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, username, password string) (model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.Session{}, ErrMissingField
	}

	var user model.User
	found, err := loadJSON(ctx, s.store, s.logger, userKey(username), &user)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if !found {
		return model.Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warning("Failed login for %s", username)
		return model.Session{}, ErrInvalidCredentials
	}

	s.logger.Info("User %s logged in", username)
	return s.sessions.Create(user.Username), nil
}

// Logout ends the session identified by token.
func (s *AccountService) Logout(token string) {
	s.sessions.Revoke(token)
}

// Authenticate resolves a session token.
func (s *AccountService) Authenticate(token string) (model.Session, bool) {
	if token == "" {
		return model.Session{}, false
	}
	return s.sessions.Lookup(token)
}
