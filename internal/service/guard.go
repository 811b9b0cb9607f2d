package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// GuardRepository is the read-only lookup surface the guard needs.
type GuardRepository interface {
	GetHero(ctx context.Context, id models.ID) (*models.Hero, error)
	GetNpc(ctx context.Context, id models.ID) (*models.Npc, error)
	GetSessionLog(ctx context.Context, id models.ID) (*models.SessionLog, error)
	GetQuest(ctx context.Context, id models.ID) (*models.Quest, error)
}

// Guard resolves hero-scoped entities and checks that the requesting user
// owns the hero they hang off. A missing entity and a missing parent hero
// both report apperr.ErrNotFound.
type Guard struct {
	repo GuardRepository
}

// NewGuard constructs a Guard.
func NewGuard(repo GuardRepository) *Guard {
	return &Guard{repo: repo}
}

// HeroForUser returns the hero when userID owns it.
func (g *Guard) HeroForUser(ctx context.Context, userID, heroID models.ID) (*models.Hero, error) {
	h, err := g.repo.GetHero(ctx, heroID)
	if err != nil {
		return nil, err
	}
	if h.UserID != userID {
		return nil, fmt.Errorf("hero %d: %w", heroID, apperr.ErrForbidden)
	}
	return h, nil
}

// NpcForUser returns the NPC and its hero when userID owns the hero.
func (g *Guard) NpcForUser(ctx context.Context, userID, id models.ID) (*models.Npc, *models.Hero, error) {
	n, err := g.repo.GetNpc(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	h, err := g.HeroForUser(ctx, userID, n.HeroID)
	if err != nil {
		return nil, nil, err
	}
	return n, h, nil
}

// SessionLogForUser returns the session log and its hero when userID owns the hero.
func (g *Guard) SessionLogForUser(ctx context.Context, userID, id models.ID) (*models.SessionLog, *models.Hero, error) {
	l, err := g.repo.GetSessionLog(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	h, err := g.HeroForUser(ctx, userID, l.HeroID)
	if err != nil {
		return nil, nil, err
	}
	return l, h, nil
}

// QuestForUser returns the quest and its hero when userID owns the hero.
func (g *Guard) QuestForUser(ctx context.Context, userID, id models.ID) (*models.Quest, *models.Hero, error) {
	q, err := g.repo.GetQuest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	h, err := g.HeroForUser(ctx, userID, q.HeroID)
	if err != nil {
		return nil, nil, err
	}
	return q, h, nil
}
