package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// SessionLogService manages the play-session journal of a hero.
type SessionLogService struct {
	repo Repository
}

// NewSessionLogService constructs a SessionLogService.
func NewSessionLogService(repo Repository) *SessionLogService {
	return &SessionLogService{repo: repo}
}

// List returns the hero's logs, most recent first.
func (s *SessionLogService) List(ctx context.Context, hero *models.Hero) ([]models.SessionLog, error) {
	return s.repo.ListSessionLogsByHero(ctx, hero.ID)
}

// Latest returns the most recent log, or an error wrapping
// apperr.ErrNotFound when there is none.
func (s *SessionLogService) Latest(ctx context.Context, hero *models.Hero) (*models.SessionLog, error) {
	return s.repo.LatestSessionLogByHero(ctx, hero.ID)
}

// Create adds a session log to hero.
func (s *SessionLogService) Create(ctx context.Context, userID models.ID, hero *models.Hero, in models.SessionLogInput) (*models.SessionLog, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var log *models.SessionLog
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		l, err := tx.CreateSessionLog(ctx, hero.ID, in)
		if err != nil {
			return err
		}
		log = l
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.SessionCreated,
			fmt.Sprintf("Logged session %q", l.Title))
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// Update applies patch to the session log.
func (s *SessionLogService) Update(ctx context.Context, userID models.ID, hero *models.Hero, id models.ID, patch models.SessionLogPatch) (*models.SessionLog, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var log *models.SessionLog
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		l, err := tx.UpdateSessionLog(ctx, id, patch)
		if err != nil {
			return err
		}
		log = l
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.SessionUpdated,
			fmt.Sprintf("Updated session %q", l.Title))
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// Delete removes the session log. NPCs first met in it lose the reference.
func (s *SessionLogService) Delete(ctx context.Context, userID models.ID, hero *models.Hero, log *models.SessionLog) error {
	return s.repo.Atomic(ctx, func(tx Repository) error {
		ok, err := tx.DeleteSessionLog(ctx, log.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session log %d: %w", log.ID, apperr.ErrNotFound)
		}
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.SessionDeleted,
			fmt.Sprintf("Deleted session %q", log.Title))
	})
}
