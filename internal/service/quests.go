package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// QuestService manages a hero's quests.
type QuestService struct {
	repo Repository
}

// NewQuestService constructs a QuestService.
func NewQuestService(repo Repository) *QuestService {
	return &QuestService{repo: repo}
}

// List returns every quest of the hero.
func (s *QuestService) List(ctx context.Context, hero *models.Hero) ([]models.Quest, error) {
	return s.repo.ListQuestsByHero(ctx, hero.ID)
}

// Active returns the quests that are not completed.
func (s *QuestService) Active(ctx context.Context, hero *models.Hero) ([]models.Quest, error) {
	return s.repo.ActiveQuestsByHero(ctx, hero.ID)
}

// Create adds a quest to hero. Quests start open unless stated otherwise.
func (s *QuestService) Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.QuestInput) (*models.Quest, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var quest *models.Quest
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		q, err := tx.CreateQuest(ctx, hero.ID, in)
		if err != nil {
			return err
		}
		quest = q
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.QuestCreated,
			fmt.Sprintf("Took on %q", q.Title))
	})
	if err != nil {
		return nil, err
	}
	return quest, nil
}

// Update applies patch to the quest.
func (s *QuestService) Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.QuestPatch) (*models.Quest, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var quest *models.Quest
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		q, err := tx.UpdateQuest(ctx, id, patch)
		if err != nil {
			return err
		}
		quest = q
		msg := fmt.Sprintf("Updated %q", q.Title)
		if patch.Completed != nil && *patch.Completed {
			msg = fmt.Sprintf("Completed %q", q.Title)
		}
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.QuestUpdated, msg)
	})
	if err != nil {
		return nil, err
	}
	return quest, nil
}

// Delete removes the quest.
func (s *QuestService) Delete(ctx context.Context, userID models.ID, hero *models.Hero, quest *models.Quest) error {
	return s.repo.Atomic(ctx, func(tx Repository) error {
		ok, err := tx.DeleteQuest(ctx, quest.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("quest %d: %w", quest.ID, apperr.ErrNotFound)
		}
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.QuestDeleted,
			fmt.Sprintf("Dropped %q", quest.Title))
	})
}
