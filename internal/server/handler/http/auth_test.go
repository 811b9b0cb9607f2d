package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/service"
)

// fakeAuthService implements AuthService for testing.
type fakeAuthService struct {
	RegisterFunc    func(ctx context.Context, in service.RegisterInput) (*models.User, *auth.Issued, error)
	LoginFunc       func(ctx context.Context, username, password string) (*models.User, *auth.Issued, error)
	LogoutFunc      func(ctx context.Context, token string) error
	CurrentUserFunc func(ctx context.Context, userID models.ID) (*models.User, error)
}

func (f *fakeAuthService) Register(ctx context.Context, in service.RegisterInput) (*models.User, *auth.Issued, error) {
	return f.RegisterFunc(ctx, in)
}
func (f *fakeAuthService) Login(ctx context.Context, username, password string) (*models.User, *auth.Issued, error) {
	return f.LoginFunc(ctx, username, password)
}
func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	return f.LogoutFunc(ctx, token)
}
func (f *fakeAuthService) CurrentUser(ctx context.Context, userID models.ID) (*models.User, error) {
	return f.CurrentUserFunc(ctx, userID)
}

func issued() *auth.Issued {
	return &auth.Issued{Token: "signed-token", ExpiresAt: time.Now().Add(time.Hour)}
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		registerErr    error
		expectedCode   int
		expectedSubstr string
		expectCookie   bool
	}{
		{
			name:           "invalid JSON",
			body:           `not a json`,
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: "malformed JSON",
		},
		{
			name:           "validation failure",
			body:           `{"username":"al"}`,
			registerErr:    apperr.Invalid("username", "must be between 3 and 50 characters"),
			expectedCode:   http.StatusBadRequest,
			expectedSubstr: `"field":"username"`,
		},
		{
			name:           "duplicate user",
			body:           `{"username":"bob","email":"bob@example.com","password":"correct horse"}`,
			registerErr:    fmt.Errorf("create user: %w", apperr.ErrConflict),
			expectedCode:   http.StatusConflict,
			expectedSubstr: "already exists",
		},
		{
			name:           "store failure",
			body:           `{"username":"carol","email":"carol@example.com","password":"correct horse"}`,
			registerErr:    errors.New("db down"),
			expectedCode:   http.StatusInternalServerError,
			expectedSubstr: "internal error",
		},
		{
			name:           "success",
			body:           `{"username":"alice","email":"alice@example.com","password":"correct horse"}`,
			expectedCode:   http.StatusCreated,
			expectedSubstr: `"username":"alice"`,
			expectCookie:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{
				RegisterFunc: func(_ context.Context, in service.RegisterInput) (*models.User, *auth.Issued, error) {
					if tt.registerErr != nil {
						return nil, nil, tt.registerErr
					}
					return &models.User{ID: 1, Username: in.Username, Email: in.Email, PasswordHash: []byte("secret")}, issued(), nil
				},
			}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: svc, Log: zap.NewNop()}
			h.Register(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}
			buf := new(bytes.Buffer)
			if _, err := buf.ReadFrom(res.Body); err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.expectedSubstr)) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedSubstr, buf.String())
			}
			if bytes.Contains(buf.Bytes(), []byte("secret")) || bytes.Contains(buf.Bytes(), []byte("password")) {
				t.Errorf("response leaks credentials: %s", buf.String())
			}
			gotCookie := len(res.Cookies()) == 1 && res.Cookies()[0].Name == auth.CookieName
			if gotCookie != tt.expectCookie {
				t.Errorf("cookie set = %v; want %v", gotCookie, tt.expectCookie)
			}
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := &fakeAuthService{
		LoginFunc: func(_ context.Context, username, password string) (*models.User, *auth.Issued, error) {
			if username == "frank" && password == "correct horse" {
				return &models.User{ID: 2, Username: "frank"}, issued(), nil
			}
			return nil, nil, apperr.ErrUnauthenticated
		},
	}
	tests := []struct {
		name         string
		body         string
		secure       bool
		expectedCode int
	}{
		{"wrong password", `{"username":"frank","password":"nope"}`, false, http.StatusUnauthorized},
		{"empty body", ``, false, http.StatusBadRequest},
		{"success", `{"username":"frank","password":"correct horse"}`, false, http.StatusOK},
		{"success secure", `{"username":"frank","password":"correct horse"}`, true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(tt.body))
			h := &AuthHandler{AuthService: svc, Log: zap.NewNop(), SecureCookies: tt.secure}
			h.Login(rec, req)
			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedCode {
				t.Fatalf("expected status %d, got %d", tt.expectedCode, res.StatusCode)
			}
			if tt.expectedCode != http.StatusOK {
				return
			}
			var payload map[string]any
			if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if payload["username"] != "frank" {
				t.Errorf("expected username frank, got %v", payload["username"])
			}
			cookies := res.Cookies()
			if len(cookies) != 1 || cookies[0].Value != "signed-token" || !cookies[0].HttpOnly {
				t.Fatalf("unexpected cookies %+v", cookies)
			}
			if cookies[0].Secure != tt.secure {
				t.Errorf("Secure = %v; want %v", cookies[0].Secure, tt.secure)
			}
		})
	}
}

func TestAuthHandler_LogoutAndUser(t *testing.T) {
	var ended string
	svc := &fakeAuthService{
		LogoutFunc: func(_ context.Context, token string) error {
			ended = token
			return nil
		},
		CurrentUserFunc: func(_ context.Context, id models.ID) (*models.User, error) {
			return &models.User{ID: id, Username: "alice"}, nil
		},
	}
	h := &AuthHandler{AuthService: svc, Log: zap.NewNop()}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d; want 204", rec.Code)
	}
	if ended != "tok" {
		t.Errorf("ended session %q; want tok", ended)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", c)
	}

	rec = httptest.NewRecorder()
	h.User(rec, httptest.NewRequest(http.MethodGet, "/user", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /user status = %d; want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))
	rec = httptest.NewRecorder()
	h.User(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"id":5`)) {
		t.Errorf("/user = %d %s", rec.Code, rec.Body.String())
	}
}
