// Package redisstore keeps login sessions in Redis with a TTL matching the
// session expiry.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

const keyPrefix = "session:"

// Store implements auth.SessionStore over a Redis client.
type Store struct {
	client redis.UniversalClient
	now    func() time.Time
}

// New wraps an existing client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, now: time.Now}
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client), nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

type sessionData struct {
	UserID    models.ID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func key(id string) string { return keyPrefix + id }

// CreateAuthSession stores the session until it expires.
func (s *Store) CreateAuthSession(ctx context.Context, sess models.AuthSession) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("create session: already expired")
	}
	payload, err := json.Marshal(sessionData{
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

// GetAuthSession loads a session. Missing or evicted keys wrap apperr.ErrNotFound.
func (s *Store) GetAuthSession(ctx context.Context, id string) (*models.AuthSession, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &models.AuthSession{
		ID:        id,
		UserID:    data.UserID,
		CreatedAt: data.CreatedAt,
		ExpiresAt: data.ExpiresAt,
	}, nil
}

// DeleteAuthSession removes a session.
func (s *Store) DeleteAuthSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
