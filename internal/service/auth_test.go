package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

type mockUserRepo struct {
	CreateUserFunc        func(ctx context.Context, u *models.User) error
	GetUserByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
	GetUserByIDFunc       func(ctx context.Context, id models.ID) (*models.User, error)
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.CreateUserFunc(ctx, u)
}
func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.GetUserByUsernameFunc(ctx, username)
}
func (m *mockUserRepo) GetUserByID(ctx context.Context, id models.ID) (*models.User, error) {
	return m.GetUserByIDFunc(ctx, id)
}

type mockSessions struct {
	StartFunc func(ctx context.Context, userID models.ID) (*auth.Issued, error)
	EndFunc   func(ctx context.Context, token string) error
}

func (m *mockSessions) Start(ctx context.Context, userID models.ID) (*auth.Issued, error) {
	return m.StartFunc(ctx, userID)
}
func (m *mockSessions) End(ctx context.Context, token string) error {
	return m.EndFunc(ctx, token)
}

func okSessions() *mockSessions {
	return &mockSessions{
		StartFunc: func(_ context.Context, userID models.ID) (*auth.Issued, error) {
			return &auth.Issued{Token: fmt.Sprintf("token-%d", userID), ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		EndFunc: func(context.Context, string) error { return nil },
	}
}

func TestRegister_Success(t *testing.T) {
	var stored *models.User
	repo := &mockUserRepo{
		CreateUserFunc: func(_ context.Context, u *models.User) error {
			u.ID = 7
			stored = u
			return nil
		},
	}
	svc := NewAuthService(repo, okSessions())

	u, issued, err := svc.Register(context.Background(), RegisterInput{
		Username: " alice ", Email: "Alice@Example.com", Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@example.com" {
		t.Errorf("Register normalized to %q / %q", u.Username, u.Email)
	}
	if !auth.CheckPassword(stored.PasswordHash, "correct horse") {
		t.Error("stored hash does not verify")
	}
	if issued.Token != "token-7" {
		t.Errorf("token = %q; want token-7", issued.Token)
	}
}

func TestRegister_Validation(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(context.Context, *models.User) error {
			t.Fatal("CreateUser must not be called for invalid input")
			return nil
		},
	}
	svc := NewAuthService(repo, okSessions())

	_, _, err := svc.Register(context.Background(), RegisterInput{Username: "al", Email: "nope", Password: "short"})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v; want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d field errors; want 3: %v", len(verr.Errors), verr.Errors)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := &mockUserRepo{
		CreateUserFunc: func(context.Context, *models.User) error {
			return fmt.Errorf("create user: %w", apperr.ErrConflict)
		},
	}
	svc := NewAuthService(repo, okSessions())

	_, _, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@b.c", Password: "correct horse"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("error = %v; want ErrConflict", err)
	}
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	repo := &mockUserRepo{
		GetUserByUsernameFunc: func(_ context.Context, username string) (*models.User, error) {
			if username != "alice" {
				return nil, apperr.ErrNotFound
			}
			return &models.User{ID: 1, Username: "alice", PasswordHash: hash}, nil
		},
	}
	svc := NewAuthService(repo, okSessions())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"success", "alice", "correct horse", nil},
		{"wrong password", "alice", "battery staple", apperr.ErrUnauthenticated},
		{"unknown user", "mallory", "correct horse", apperr.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, issued, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login returned error: %v", err)
			}
			if u.ID != 1 || issued.Token == "" {
				t.Errorf("unexpected login result %+v %+v", u, issued)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	ended := ""
	sessions := okSessions()
	sessions.EndFunc = func(_ context.Context, token string) error {
		ended = token
		return nil
	}
	svc := NewAuthService(&mockUserRepo{}, sessions)

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with no token: %v", err)
	}
	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if ended != "tok" {
		t.Errorf("ended %q; want tok", ended)
	}
}

func TestCurrentUser_Vanished(t *testing.T) {
	repo := &mockUserRepo{
		GetUserByIDFunc: func(context.Context, models.ID) (*models.User, error) {
			return nil, fmt.Errorf("get: %w", apperr.ErrNotFound)
		},
	}
	svc := NewAuthService(repo, okSessions())
	if _, err := svc.CurrentUser(context.Background(), 3); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Fatalf("error = %v; want ErrUnauthenticated", err)
	}
}
