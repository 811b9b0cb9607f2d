package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/db"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.InitSQLite(context.Background(), filepath.Join(t.TempDir(), "herokeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	clock := &stepClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(conn, db.SQLite).WithClock(clock.Now)
}

func seedUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: []byte("hash")}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedHero(t *testing.T, s *Store, userID models.ID, name string) *models.Hero {
	t.Helper()
	in := models.HeroInput{Name: name, System: "dnd5e"}
	in.Normalize()
	h, err := s.CreateHero(context.Background(), userID, in)
	require.NoError(t, err)
	return h
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	alice := seedUser(t, s, "alice")
	assert.NotZero(t, alice.ID)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, []byte("hash"), got.PasswordHash)

	byID, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: []byte("x")}
	err = s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuthSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateAuthSession(ctx, models.AuthSession{
		ID: "live", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.CreateAuthSession(ctx, models.AuthSession{
		ID: "stale", UserID: u.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	sess, err := s.GetAuthSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)
	assert.True(t, sess.ExpiresAt.Equal(now.Add(time.Hour)))

	n, err := s.DeleteExpiredAuthSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetAuthSession(ctx, "stale")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.DeleteAuthSession(ctx, "live"))
	require.NoError(t, s.DeleteAuthSession(ctx, "live"))
	_, err = s.GetAuthSession(ctx, "live")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHeroes_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	age := 120
	in := models.HeroInput{
		Name: "Thalia", System: "dnd5e", Race: "Elf", Class: "Rogue", Level: 3, Age: &age,
		Tags:  models.Tags{"rogue", "rogue", " elf "},
		Stats: models.Stats{"dex": models.NumberStat(18), "alignment": models.TextStat("CG")},
	}
	in.Normalize()
	thalia, err := s.CreateHero(ctx, alice.ID, in)
	require.NoError(t, err)
	seedHero(t, s, alice.ID, "Borin")
	seedHero(t, s, bob.ID, "Garrick")

	got, err := s.GetHero(ctx, thalia.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thalia", got.Name)
	assert.Equal(t, models.Tags{"rogue", "elf"}, got.Tags)
	assert.Equal(t, in.Stats, got.Stats)
	require.NotNil(t, got.Age)
	assert.Equal(t, 120, *got.Age)
	assert.True(t, got.CreatedAt.Equal(thalia.CreatedAt))

	heroes, err := s.ListHeroesByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, heroes, 2)
	assert.Equal(t, "Borin", heroes[0].Name)
	assert.Equal(t, "Thalia", heroes[1].Name)

	level := 4
	zero := 0
	updated, err := s.UpdateHero(ctx, thalia.ID, models.HeroPatch{Level: &level, Age: &zero})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Level)
	assert.Nil(t, updated.Age)
	assert.Equal(t, "Rogue", updated.Class)
	assert.Equal(t, alice.ID, updated.UserID)
	assert.True(t, updated.UpdatedAt.After(thalia.UpdatedAt))

	_, err = s.UpdateHero(ctx, 9999, models.HeroPatch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	withPDF, err := s.SetHeroBackstoryPDF(ctx, thalia.ID, "heroes/1/backstory.pdf")
	require.NoError(t, err)
	assert.Equal(t, "heroes/1/backstory.pdf", withPDF.BackstoryPDF)
}

func TestHeroes_EmptyUpdateBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	updated, err := s.UpdateHero(ctx, h.ID, models.HeroPatch{})
	require.NoError(t, err)
	assert.Equal(t, h.Name, updated.Name)
	assert.Equal(t, h.Level, updated.Level)
	assert.True(t, updated.UpdatedAt.After(h.UpdatedAt))
	assert.True(t, updated.CreatedAt.Equal(h.CreatedAt))
}

func TestDeleteHero_CascadesButKeepsActivities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")
	other := seedHero(t, s, u.ID, "Borin")

	sess, err := s.CreateSessionLog(ctx, h.ID, models.SessionLogInput{Title: "Arrival", Date: "2024-01-05"})
	require.NoError(t, err)
	_, err = s.CreateNpc(ctx, h.ID, models.NpcInput{Name: "Orin", Relationship: models.RelationshipAlly, FirstSessionID: &sess.ID})
	require.NoError(t, err)
	_, err = s.CreateQuest(ctx, h.ID, models.QuestInput{Title: "Find the map"})
	require.NoError(t, err)
	_, err = s.CreateQuest(ctx, other.ID, models.QuestInput{Title: "Forge the axe"})
	require.NoError(t, err)
	require.NoError(t, s.CreateActivity(ctx, &models.Activity{
		HeroID: h.ID, UserID: u.ID, Type: models.HeroDeleted, Message: `Deleted hero "Thalia"`,
	}))

	ok, err := s.DeleteHero(ctx, h.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetHero(ctx, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	npcs, err := s.ListNpcsByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, npcs)
	logs, err := s.ListSessionLogsByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	quests, err := s.ListQuestsByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, quests)

	otherQuests, err := s.ListQuestsByHero(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherQuests, 1)

	acts, err := s.ListActivitiesByHero(ctx, h.ID, 10)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.HeroDeleted, acts[0].Type)

	ok, err = s.DeleteHero(ctx, h.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNpcs_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	in := models.NpcInput{Name: "Orin"}
	in.Normalize()
	orin, err := s.CreateNpc(ctx, h.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.RelationshipNeutral, orin.Relationship)
	assert.Nil(t, orin.FirstSessionID)

	fav := true
	rel := models.RelationshipMentor
	updated, err := s.UpdateNpc(ctx, orin.ID, models.NpcPatch{Favorite: &fav, Relationship: &rel})
	require.NoError(t, err)
	assert.True(t, updated.Favorite)
	assert.Equal(t, models.RelationshipMentor, updated.Relationship)

	got, err := s.GetNpc(ctx, orin.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Favorite, got.Favorite)
	assert.Equal(t, h.ID, got.HeroID)

	ok, err := s.DeleteNpc(ctx, orin.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteNpc(ctx, orin.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpdateNpc(ctx, orin.ID, models.NpcPatch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionLogs_OrderingAndLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	_, err := s.LatestSessionLogByHero(ctx, h.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, in := range []models.SessionLogInput{
		{Title: "First", Date: "2024-01-05"},
		{Title: "Third", Date: "2024-02-10"},
		{Title: "Second", Date: "2024-01-20"},
		{Title: "Third again", Date: "2024-02-10"},
	} {
		_, err := s.CreateSessionLog(ctx, h.ID, in)
		require.NoError(t, err)
	}

	logs, err := s.ListSessionLogsByHero(ctx, h.ID)
	require.NoError(t, err)
	titles := make([]string, 0, len(logs))
	for _, l := range logs {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"Third again", "Third", "Second", "First"}, titles)

	latest, err := s.LatestSessionLogByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Third again", latest.Title)

	date := "2024-03-01T20:00:00Z"
	moved, err := s.UpdateSessionLog(ctx, logs[3].ID, models.SessionLogPatch{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", moved.Date)

	latest, err = s.LatestSessionLogByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", latest.Title)
}

func TestDeleteSessionLog_ClearsNpcFirstSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	sess, err := s.CreateSessionLog(ctx, h.ID, models.SessionLogInput{Title: "Arrival", Date: "2024-01-05"})
	require.NoError(t, err)
	npc, err := s.CreateNpc(ctx, h.ID, models.NpcInput{Name: "Orin", Relationship: models.RelationshipAlly, FirstSessionID: &sess.ID})
	require.NoError(t, err)
	require.NotNil(t, npc.FirstSessionID)

	ok, err := s.DeleteSessionLog(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetNpc(ctx, npc.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FirstSessionID)
}

func TestQuests_Active(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	open, err := s.CreateQuest(ctx, h.ID, models.QuestInput{Title: "Find the map", Type: models.QuestMain})
	require.NoError(t, err)
	done, err := s.CreateQuest(ctx, h.ID, models.QuestInput{Title: "Pay the ferryman", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, models.QuestSide, done.Type)

	active, err := s.ActiveQuestsByHero(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)

	completed := true
	_, err = s.UpdateQuest(ctx, open.ID, models.QuestPatch{Completed: &completed})
	require.NoError(t, err)

	active, err = s.ActiveQuestsByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.ListQuestsByHero(ctx, h.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestActivities_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")
	h := seedHero(t, s, u.ID, "Thalia")

	for i, kind := range []models.ActivityType{models.HeroCreated, models.NpcCreated, models.QuestCreated} {
		a := &models.Activity{HeroID: h.ID, UserID: u.ID, Type: kind, Message: string(kind)}
		require.NoError(t, s.CreateActivity(ctx, a), "activity %d", i)
		assert.NotZero(t, a.ID)
	}

	acts, err := s.ListActivitiesByHero(ctx, h.ID, 2)
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, models.QuestCreated, acts[0].Type)
	assert.Equal(t, models.NpcCreated, acts[1].Type)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.CreateHero(ctx, u.ID, models.HeroInput{Name: "Ghost", System: "dnd5e", Level: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	heroes, err := s.ListHeroesByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, heroes)
}

func TestPostgresPlaceholders(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s := NewStore(conn, db.Postgres)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM quests WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := s.DeleteQuest(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHero_QueryError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	s := NewStore(conn, db.Postgres)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM heroes WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	_, err = s.GetHero(context.Background(), 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
