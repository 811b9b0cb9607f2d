package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	// CreateUser inserts u and fills its id. Duplicates wrap apperr.ErrConflict.
	CreateUser(ctx context.Context, u *models.User) error
	// GetUserByUsername returns the user or an error wrapping apperr.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUserByID returns the user or an error wrapping apperr.ErrNotFound.
	GetUserByID(ctx context.Context, id models.ID) (*models.User, error)
}

// SessionManager starts and ends login sessions.
type SessionManager interface {
	Start(ctx context.Context, userID models.ID) (*auth.Issued, error)
	End(ctx context.Context, token string) error
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the registration fields.
func (in RegisterInput) Validate() error {
	var v apperr.ValidationError
	switch n := len(in.Username); {
	case n == 0:
		v.Add("username", "is required")
	case n < 3 || n > 50:
		v.Add("username", "must be between 3 and 50 characters")
	}
	if in.Email == "" {
		v.Add("email", "is required")
	} else if !strings.Contains(in.Email, "@") {
		v.Add("email", "must be a valid email address")
	}
	if len(in.Password) < auth.MinPasswordLength {
		v.Add("password", fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	} else if len(in.Password) > 72 {
		v.Add("password", "must not exceed 72 bytes")
	}
	return v.Err()
}

// AuthService implements registration, login and logout.
type AuthService struct {
	users    UserRepository
	sessions SessionManager
}

// NewAuthService constructs a new AuthService.
func NewAuthService(users UserRepository, sessions SessionManager) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Register creates a user and starts a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, *auth.Issued, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, nil, err
	}

	issued, err := s.sessions.Start(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, issued, nil
}

// Login verifies credentials and starts a session. Unknown users and wrong
// passwords both yield apperr.ErrUnauthenticated.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, *auth.Issued, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, nil, apperr.ErrUnauthenticated
	}

	issued, err := s.sessions.Start(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	return u, issued, nil
}

// Logout ends the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.End(ctx, token)
}

// CurrentUser returns the user behind an authenticated request.
func (s *AuthService) CurrentUser(ctx context.Context, userID models.ID) (*models.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The account vanished while the session was still live.
		return nil, apperr.ErrUnauthenticated
	}
	return u, err
}
