package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

// CreateAuthSession stores a login session.
func (s *Store) CreateAuthSession(ctx context.Context, sess models.AuthSession) error {
	_, err := s.exec(ctx,
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create auth session: %w", err)
	}
	return nil
}

// GetAuthSession returns the session with the given id, expired or not.
func (s *Store) GetAuthSession(ctx context.Context, id string) (*models.AuthSession, error) {
	var sess models.AuthSession
	err := s.queryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return nil, notFound("get auth session", err)
	}
	return &sess, nil
}

// DeleteAuthSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteAuthSession(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM auth_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete auth session: %w", err)
	}
	return nil
}

// DeleteExpiredAuthSessions removes sessions that expired before now and
// returns how many were removed.
func (s *Store) DeleteExpiredAuthSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired auth sessions: %w", err)
	}
	return res.RowsAffected()
}
