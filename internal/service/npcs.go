package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// NpcService manages the NPCs a hero has met.
type NpcService struct {
	repo Repository
}

// NewNpcService constructs an NpcService.
func NewNpcService(repo Repository) *NpcService {
	return &NpcService{repo: repo}
}

// List returns the hero's NPCs.
func (s *NpcService) List(ctx context.Context, hero *models.Hero) ([]models.Npc, error) {
	return s.repo.ListNpcsByHero(ctx, hero.ID)
}

// Create adds an NPC to hero.
func (s *NpcService) Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.NpcInput) (*models.Npc, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var npc *models.Npc
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		if err := checkFirstSession(ctx, tx, hero.ID, in.FirstSessionID); err != nil {
			return err
		}
		n, err := tx.CreateNpc(ctx, hero.ID, in)
		if err != nil {
			return err
		}
		npc = n
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.NpcCreated,
			fmt.Sprintf("Met %s", n.Name))
	})
	if err != nil {
		return nil, err
	}
	return npc, nil
}

// Update applies patch to the NPC.
func (s *NpcService) Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.NpcPatch) (*models.Npc, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var npc *models.Npc
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		if first := patch.FirstSessionID; first.Set && first.Value != 0 {
			if err := checkFirstSession(ctx, tx, hero.ID, &first.Value); err != nil {
				return err
			}
		}
		n, err := tx.UpdateNpc(ctx, id, patch)
		if err != nil {
			return err
		}
		npc = n
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.NpcUpdated,
			fmt.Sprintf("Updated %s", n.Name))
	})
	if err != nil {
		return nil, err
	}
	return npc, nil
}

// Delete removes the NPC.
func (s *NpcService) Delete(ctx context.Context, userID models.ID, hero *models.Hero, npc *models.Npc) error {
	return s.repo.Atomic(ctx, func(tx Repository) error {
		ok, err := tx.DeleteNpc(ctx, npc.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("npc %d: %w", npc.ID, apperr.ErrNotFound)
		}
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.NpcDeleted,
			fmt.Sprintf("Removed %s", npc.Name))
	})
}

// checkFirstSession verifies that a referenced session belongs to the hero.
func checkFirstSession(ctx context.Context, repo SessionLogRepository, heroID models.ID, id *models.ID) error {
	if id == nil {
		return nil
	}
	l, err := repo.GetSessionLog(ctx, *id)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && l.HeroID != heroID) {
		return apperr.Invalid("firstSessionId", "must reference a session of this hero")
	}
	return err
}
