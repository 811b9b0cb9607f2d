package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/certgen"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// APIError is a non-2xx answer from the server. It unwraps to the matching
// apperr sentinel so callers can use errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperr.ErrUnauthenticated
	case http.StatusForbidden:
		return apperr.ErrForbidden
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	}
	return nil
}

// Credentials are what a user types to register or log in.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// APIConfig configures NewAPIClient.
type APIConfig struct {
	BaseURL string
	// CAFile replaces the system roots with the PEM certificates it holds.
	CAFile string
	// SessionFile keeps the session cookie between invocations. Empty
	// disables persistence.
	SessionFile string
	Timeout     time.Duration
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// APIClient is a Journal backed by the HeroKeeper REST API.
type APIClient struct {
	base        *url.URL
	http        *http.Client
	sessionFile string
}

// NewAPIClient builds a client with a cookie jar, restoring a saved session
// when SessionFile exists.
func NewAPIClient(cfg APIConfig) (*APIClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := cfg.Transport
	if transport == nil && cfg.CAFile != "" {
		pool, err := certgen.CertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	c := &APIClient{
		base:        base,
		http:        &http.Client{Transport: transport, Jar: jar, Timeout: timeout},
		sessionFile: cfg.SessionFile,
	}
	if err := c.restoreSession(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *APIClient) restoreSession() error {
	if c.sessionFile == "" {
		return nil
	}
	token, err := os.ReadFile(c.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if t := strings.TrimSpace(string(token)); t != "" {
		c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: auth.CookieName, Value: t, Path: "/"}})
	}
	return nil
}

func (c *APIClient) saveSession() error {
	if c.sessionFile == "" {
		return nil
	}
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == auth.CookieName {
			return os.WriteFile(c.sessionFile, []byte(ck.Value), 0o600)
		}
	}
	return errors.New("server did not start a session")
}

// Register creates an account and keeps the session it starts.
func (c *APIClient) Register(ctx context.Context, cred Credentials) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/api/register", nil, cred, &u); err != nil {
		return nil, err
	}
	return &u, c.saveSession()
}

// Login starts a session for existing credentials.
func (c *APIClient) Login(ctx context.Context, username, password string) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, Credentials{Username: username, Password: password}, &u); err != nil {
		return nil, err
	}
	return &u, c.saveSession()
}

// Logout ends the session on the server and forgets the saved cookie.
func (c *APIClient) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil); err != nil {
		return err
	}
	if c.sessionFile != "" {
		if err := os.Remove(c.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// CurrentUser returns the logged-in user.
func (c *APIClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/user", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) ListHeroes(ctx context.Context) ([]models.Hero, error) {
	var heroes []models.Hero
	if err := c.do(ctx, http.MethodGet, "/api/heroes", nil, nil, &heroes); err != nil {
		return nil, err
	}
	return heroes, nil
}

func (c *APIClient) CreateHero(ctx context.Context, in models.HeroInput) (*models.Hero, error) {
	var h models.Hero
	if err := c.do(ctx, http.MethodPost, "/api/heroes", nil, in, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *APIClient) DeleteHero(ctx context.Context, id models.ID) error {
	return c.do(ctx, http.MethodDelete, "/api/heroes/"+id.String(), nil, nil, nil)
}

func (c *APIClient) Activities(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error) {
	q := url.Values{"limit": {strconv.Itoa(clampLimit(limit))}}
	var list []models.Activity
	if err := c.do(ctx, http.MethodGet, "/api/heroes/"+heroID.String()+"/activities", q, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *APIClient) ExportAll(ctx context.Context) (*models.ExportedHeroSet, error) {
	var set models.ExportedHeroSet
	if err := c.do(ctx, http.MethodGet, "/api/export", nil, nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *APIClient) ImportAll(ctx context.Context, set models.ExportedHeroSet, replace bool) (*models.ImportResult, error) {
	q := url.Values{"replace": {strconv.FormatBool(replace)}}
	var res models.ImportResult
	if err := c.do(ctx, http.MethodPost, "/api/import/all", q, set, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends one JSON request. out may be nil when the response body is not needed.
func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
