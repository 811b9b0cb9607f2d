package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// Round-trip tests need a live server; set REDIS_ADDR to run them.
func liveStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := liveStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := models.AuthSession{ID: uuid.NewString(), UserID: 7, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.CreateAuthSession(ctx, sess))

	got, err := s.GetAuthSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt))

	require.NoError(t, s.DeleteAuthSession(ctx, sess.ID))
	_, err = s.GetAuthSession(ctx, sess.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateAuthSession_RejectsExpired(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := New(client)

	past := time.Now().Add(-time.Minute)
	err := s.CreateAuthSession(context.Background(), models.AuthSession{ID: "x", UserID: 1, ExpiresAt: past})
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "session:abc", key("abc"))
}
