package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/auth"
	"github.com/atinyakov/HeroKeeper/internal/blob"
	"github.com/atinyakov/HeroKeeper/internal/db"
	"github.com/atinyakov/HeroKeeper/internal/gamesystem"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/repository"
	api "github.com/atinyakov/HeroKeeper/internal/server/handler/http"
	"github.com/atinyakov/HeroKeeper/internal/service"
)

// newTestServer wires the full stack over a temp-dir SQLite database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	log := zap.NewNop()

	conn, err := db.InitSQLite(context.Background(), filepath.Join(dir, "herokeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	store := repository.NewStore(conn, db.SQLite)
	repo := service.NewRepository(store)
	signer, err := auth.NewTokenSigner([]byte("test-secret"))
	require.NoError(t, err)
	sessions := auth.NewSessions(store, signer, time.Hour)
	catalog, err := gamesystem.Builtin()
	require.NoError(t, err)
	blobs, err := blob.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	handlers := api.Handlers{
		Auth:       &api.AuthHandler{AuthService: service.NewAuthService(store, sessions), Log: log},
		Heroes:     &api.HeroHandler{HeroService: service.NewHeroService(repo, catalog, blobs, log), Log: log},
		Npcs:       &api.NpcHandler{NpcService: service.NewNpcService(repo), Log: log},
		Sessions:   &api.SessionLogHandler{SessionLogService: service.NewSessionLogService(repo), Log: log},
		Quests:     &api.QuestHandler{QuestService: service.NewQuestService(repo), Log: log},
		Activities: &api.ActivityHandler{Activities: service.NewActivityRecorder(repo), Log: log},
		Transfer:   &api.TransferHandler{TransferService: service.NewTransferService(repo, blobs, log), Log: log},
		Systems:    &api.SystemsHandler{Catalog: catalog},
		Health:     &api.HealthHandler{DB: conn, Log: log},
	}
	router := api.NewRouter(handlers, sessions, service.NewGuard(repo), middleware.NewMetrics(), log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// apiClient is one browser: its own cookie jar.
type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

// do sends body as JSON (when non-nil) and decodes the response into out
// (when non-nil). It returns the status code.
func (c *apiClient) do(method, path string, body, out any) int {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(res.Body).Decode(out), "%s %s", method, path)
	}
	return res.StatusCode
}

func (c *apiClient) register(username string) models.User {
	c.t.Helper()
	var u models.User
	status := c.do(http.MethodPost, "/api/register", map[string]string{
		"username": username, "email": username + "@example.com", "password": "correct horse",
	}, &u)
	require.Equal(c.t, http.StatusCreated, status)
	return u
}

func (c *apiClient) createHero(name string) models.Hero {
	c.t.Helper()
	var h models.Hero
	require.Equal(c.t, http.StatusCreated, c.do(http.MethodPost, "/api/heroes",
		map[string]any{"name": name, "system": "dnd5e", "level": 1}, &h))
	return h
}

func heroPath(id models.ID, suffix string) string {
	return "/api/heroes/" + id.String() + suffix
}

func TestAPI_HeroLifecycle(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	user := alice.register("alice")

	thalia := alice.createHero("Thalia")
	assert.Equal(t, user.ID, thalia.UserID)
	assert.Equal(t, thalia.CreatedAt, thalia.UpdatedAt)

	var orin models.Npc
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, heroPath(thalia.ID, "/npcs"),
		map[string]any{"name": "Orin", "relationship": "mentor"}, &orin))
	assert.Equal(t, thalia.ID, orin.HeroID)

	var doc models.ExportedHero
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/export"), nil, &doc))
	assert.Equal(t, "Thalia", doc.Hero.Name)
	require.Len(t, doc.Npcs, 1)
	assert.Equal(t, "Orin", doc.Npcs[0].Name)
	assert.Empty(t, doc.Sessions)
	assert.Empty(t, doc.Quests)

	require.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, heroPath(thalia.ID, ""), nil, nil))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, heroPath(thalia.ID, ""), nil, nil))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, heroPath(thalia.ID, "/npcs"), nil, nil))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/api/npcs/"+orin.ID.String(), nil, nil))
	// the audit trail outlives the hero but is not served for it
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, heroPath(thalia.ID, "/activities"), nil, nil))
}

func TestAPI_Authentication(t *testing.T) {
	srv := newTestServer(t)
	anon := newClient(t, srv)

	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/heroes", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/user", nil, nil))

	alice := newClient(t, srv)
	alice.register("alice")
	var me models.User
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/user", nil, &me))
	assert.Equal(t, "alice", me.Username)

	require.Equal(t, http.StatusNoContent, alice.do(http.MethodPost, "/api/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, alice.do(http.MethodGet, "/api/user", nil, nil))

	assert.Equal(t, http.StatusUnauthorized, alice.do(http.MethodPost, "/api/login",
		map[string]string{"username": "alice", "password": "wrong password"}, nil))
	require.Equal(t, http.StatusOK, alice.do(http.MethodPost, "/api/login",
		map[string]string{"username": "alice", "password": "correct horse"}, nil))
	assert.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/user", nil, nil))

	dup := newClient(t, srv)
	assert.Equal(t, http.StatusConflict, dup.do(http.MethodPost, "/api/register", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correct horse",
	}, nil))
}

func TestAPI_OwnershipIsEnforced(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.register("alice")
	mallory := newClient(t, srv)
	mallory.register("mallory")

	thalia := alice.createHero("Thalia")
	var quest models.Quest
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, heroPath(thalia.ID, "/quests"),
		map[string]any{"title": "Find the map"}, &quest))

	var body map[string]any
	assert.Equal(t, http.StatusForbidden, mallory.do(http.MethodGet, heroPath(thalia.ID, ""), nil, &body))
	assert.NotContains(t, body, "name")
	assert.Equal(t, http.StatusForbidden, mallory.do(http.MethodPut, "/api/quests/"+quest.ID.String(),
		map[string]any{"completed": true}, nil))
	assert.Equal(t, http.StatusForbidden, mallory.do(http.MethodDelete, heroPath(thalia.ID, ""), nil, nil))
	assert.Equal(t, http.StatusForbidden, mallory.do(http.MethodGet, heroPath(thalia.ID, "/activities"), nil, nil))

	var heroes []models.Hero
	require.Equal(t, http.StatusOK, mallory.do(http.MethodGet, "/api/heroes", nil, &heroes))
	assert.Empty(t, heroes)
	assert.Equal(t, http.StatusBadRequest, mallory.do(http.MethodGet, "/api/heroes/abc", nil, nil))
}

func TestAPI_QuestsSessionsAndActivities(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.register("alice")
	thalia := alice.createHero("Thalia")

	var latest *models.SessionLog
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/sessions/latest"), nil, &latest))
	assert.Nil(t, latest)

	var sl models.SessionLog
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, heroPath(thalia.ID, "/sessions"),
		map[string]any{"title": "The Tavern", "date": "2024-03-09"}, &sl))
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/sessions/latest"), nil, &latest))
	require.NotNil(t, latest)
	assert.Equal(t, sl.ID, latest.ID)

	var quest models.Quest
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, heroPath(thalia.ID, "/quests"),
		map[string]any{"title": "Find the map"}, &quest))
	assert.False(t, quest.Completed)

	var active []models.Quest
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/quests/active"), nil, &active))
	assert.Len(t, active, 1)

	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, "/api/quests/"+quest.ID.String(),
		map[string]any{"completed": true}, &quest))
	assert.True(t, quest.Completed)
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/quests/active"), nil, &active))
	assert.Empty(t, active)

	var activities []models.Activity
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/activities?limit=2"), nil, &activities))
	require.Len(t, activities, 2)
	assert.Equal(t, models.QuestUpdated, activities[0].Type)
	assert.Equal(t, models.QuestCreated, activities[1].Type)
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, heroPath(thalia.ID, "/activities?limit=x"), nil, nil))

	var errBody struct {
		Message string `json:"message"`
		Errors  []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	require.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, heroPath(thalia.ID, "/sessions"),
		map[string]any{"title": "", "date": "someday"}, &errBody))
	assert.Len(t, errBody.Errors, 2)
}

func TestAPI_ImportConflictAndReplace(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.register("alice")
	thalia := alice.createHero("Thalia")

	var doc models.ExportedHero
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, heroPath(thalia.ID, "/export"), nil, &doc))

	var conflict struct {
		Message  string `json:"message"`
		HeroID   int64  `json:"heroId"`
		HeroName string `json:"heroName"`
	}
	require.Equal(t, http.StatusConflict, alice.do(http.MethodPost, "/api/import/hero", doc, &conflict))
	assert.Equal(t, int64(thalia.ID), conflict.HeroID)
	assert.Equal(t, "Thalia", conflict.HeroName)

	var replaced models.Hero
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/import/hero?replace=true", doc, &replaced))
	assert.Equal(t, thalia.ID, replaced.ID)

	var heroes []models.Hero
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/heroes", nil, &heroes))
	require.Len(t, heroes, 1)

	var set models.ExportedHeroSet
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/export", nil, &set))
	require.Len(t, set.Heroes, 1)

	var result models.ImportResult
	req := map[string]any{"version": set.Version, "exportDate": set.ExportDate, "heroes": set.Heroes, "replaceIfExists": true}
	require.Equal(t, http.StatusOK, alice.do(http.MethodPost, "/api/import/all", req, &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Total)
	assert.Empty(t, result.Errors)
}

func TestAPI_BackstoryPDF(t *testing.T) {
	srv := newTestServer(t)
	alice := newClient(t, srv)
	alice.register("alice")
	thalia := alice.createHero("Thalia")
	url := srv.URL + heroPath(thalia.ID, "/backstory-pdf")

	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader("%PDF-1.4 thalia"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	res, err := alice.http.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)

	req, err = http.NewRequest(http.MethodPut, url, strings.NewReader("GIF89a not a pdf"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/pdf")
	res, err = alice.http.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	req, err = http.NewRequest(http.MethodPut, url, strings.NewReader("%PDF-1.4 thalia"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/pdf")
	res, err = alice.http.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = alice.http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 thalia", string(body))

	assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, heroPath(thalia.ID, "/backstory-pdf"), nil, nil))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, heroPath(thalia.ID, "/backstory-pdf"), nil, nil))
}

func TestAPI_PublicEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	var systems []gamesystem.System
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/systems", nil, &systems))
	assert.NotEmpty(t, systems)

	var health map[string]string
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil, &health))
	assert.Equal(t, "ok", health["status"])

	res, err := c.http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "herokeeper_http_requests_total")

	res, err = c.http.Post(srv.URL+"/api/login", "text/plain", strings.NewReader("alice"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)
}
