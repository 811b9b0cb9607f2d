// Package service holds the business logic of HeroKeeper: authentication,
// ownership checks, hero-scoped CRUD with activity recording, and hero
// import/export. Persistence is reached through the interfaces below.
package service

import (
	"context"

	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/repository"
)

// HeroRepository persists heroes.
type HeroRepository interface {
	ListHeroesByUser(ctx context.Context, userID models.ID) ([]models.Hero, error)
	GetHero(ctx context.Context, id models.ID) (*models.Hero, error)
	CreateHero(ctx context.Context, userID models.ID, in models.HeroInput) (*models.Hero, error)
	UpdateHero(ctx context.Context, id models.ID, patch models.HeroPatch) (*models.Hero, error)
	SetHeroBackstoryPDF(ctx context.Context, id models.ID, key string) (*models.Hero, error)
	DeleteHero(ctx context.Context, id models.ID) (bool, error)
}

// ImportRepository finds and writes heroes coming from import documents.
type ImportRepository interface {
	FindImportedHero(ctx context.Context, userID, key models.ID) (*models.Hero, models.ID, error)
	InsertImportedHero(ctx context.Context, userID, id, importKey models.ID, in models.HeroInput) (*models.Hero, error)
}

// NpcRepository persists NPCs.
type NpcRepository interface {
	ListNpcsByHero(ctx context.Context, heroID models.ID) ([]models.Npc, error)
	GetNpc(ctx context.Context, id models.ID) (*models.Npc, error)
	CreateNpc(ctx context.Context, heroID models.ID, in models.NpcInput) (*models.Npc, error)
	UpdateNpc(ctx context.Context, id models.ID, patch models.NpcPatch) (*models.Npc, error)
	DeleteNpc(ctx context.Context, id models.ID) (bool, error)
}

// SessionLogRepository persists session logs.
type SessionLogRepository interface {
	ListSessionLogsByHero(ctx context.Context, heroID models.ID) ([]models.SessionLog, error)
	LatestSessionLogByHero(ctx context.Context, heroID models.ID) (*models.SessionLog, error)
	GetSessionLog(ctx context.Context, id models.ID) (*models.SessionLog, error)
	CreateSessionLog(ctx context.Context, heroID models.ID, in models.SessionLogInput) (*models.SessionLog, error)
	UpdateSessionLog(ctx context.Context, id models.ID, patch models.SessionLogPatch) (*models.SessionLog, error)
	DeleteSessionLog(ctx context.Context, id models.ID) (bool, error)
}

// QuestRepository persists quests.
type QuestRepository interface {
	ListQuestsByHero(ctx context.Context, heroID models.ID) ([]models.Quest, error)
	ActiveQuestsByHero(ctx context.Context, heroID models.ID) ([]models.Quest, error)
	GetQuest(ctx context.Context, id models.ID) (*models.Quest, error)
	CreateQuest(ctx context.Context, heroID models.ID, in models.QuestInput) (*models.Quest, error)
	UpdateQuest(ctx context.Context, id models.ID, patch models.QuestPatch) (*models.Quest, error)
	DeleteQuest(ctx context.Context, id models.ID) (bool, error)
}

// ActivityRepository persists the activity trail.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, a *models.Activity) error
	ListActivitiesByHero(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error)
}

// Repository is the full journal persistence surface. Atomic runs fn
// against a Repository bound to one transaction.
type Repository interface {
	HeroRepository
	ImportRepository
	NpcRepository
	SessionLogRepository
	QuestRepository
	ActivityRepository
	Atomic(ctx context.Context, fn func(tx Repository) error) error
}

// storeRepository adapts *repository.Store to Repository.
type storeRepository struct {
	*repository.Store
}

// NewRepository exposes a SQL store as a Repository.
func NewRepository(store *repository.Store) Repository {
	return storeRepository{Store: store}
}

func (r storeRepository) Atomic(ctx context.Context, fn func(tx Repository) error) error {
	return r.Store.WithTx(ctx, func(tx *repository.Store) error {
		return fn(storeRepository{Store: tx})
	})
}
