package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// SessionStore persists login sessions keyed by session id. Get returns an
// error wrapping apperr.ErrNotFound for unknown ids.
type SessionStore interface {
	CreateAuthSession(ctx context.Context, sess models.AuthSession) error
	GetAuthSession(ctx context.Context, id string) (*models.AuthSession, error)
	DeleteAuthSession(ctx context.Context, id string) error
}

// Issued is a freshly started session as handed to the client.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	Session   models.AuthSession
}

// Sessions starts, resolves and ends login sessions.
type Sessions struct {
	store  SessionStore
	signer *TokenSigner
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session manager.
func NewSessions(store SessionStore, signer *TokenSigner, ttl time.Duration) *Sessions {
	return &Sessions{store: store, signer: signer, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

// Start creates a session for userID and returns its signed token.
func (s *Sessions) Start(ctx context.Context, userID models.ID) (*Issued, error) {
	now := s.now().UTC().Truncate(time.Second)
	sess := models.AuthSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateAuthSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	token, err := s.signer.Sign(sess.ID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &Issued{Token: token, ExpiresAt: sess.ExpiresAt, Session: sess}, nil
}

// Resolve maps a cookie token to its live session. Any failure other than a
// store error is reported as apperr.ErrUnauthenticated.
func (s *Sessions) Resolve(ctx context.Context, token string) (*models.AuthSession, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}
	now := s.now()
	sid, err := s.signer.Parse(token, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	sess, err := s.store.GetAuthSession(ctx, sid)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess.Expired(now) {
		return nil, apperr.ErrUnauthenticated
	}
	return sess, nil
}

// End deletes the session behind token. Invalid tokens are ignored.
func (s *Sessions) End(ctx context.Context, token string) error {
	sid, err := s.signer.Parse(token, s.now())
	if err != nil {
		return nil
	}
	if err := s.store.DeleteAuthSession(ctx, sid); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
