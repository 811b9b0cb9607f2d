package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

const userColumns = `id, username, email, password_hash, created_at, updated_at`

// CreateUser inserts a user and fills its id and timestamps. A duplicate
// username or email yields apperr.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := s.timestamp()
	err := s.queryRow(ctx,
		`INSERT INTO users (username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		u.Username, u.Email, u.PasswordHash, now, now,
	).Scan(&u.ID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetUserByUsername looks a user up by login name.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound("get user by username", err)
	}
	return u, nil
}

// GetUserByID looks a user up by id.
func (s *Store) GetUserByID(ctx context.Context, id models.ID) (*models.User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound("get user by id", err)
	}
	return u, nil
}

func scanUser(sc scanner) (*models.User, error) {
	var u models.User
	if err := sc.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
