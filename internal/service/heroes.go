package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/blob"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// MaxBackstoryPDFSize is the largest accepted backstory document.
const MaxBackstoryPDFSize = 10 << 20

// StatsCatalog supplies starting statistics per game system.
type StatsCatalog interface {
	DefaultStats(system string) models.Stats
}

// HeroService manages heroes and their attachments.
type HeroService struct {
	repo    Repository
	catalog StatsCatalog
	blobs   blob.Store
	log     *zap.Logger
}

// NewHeroService constructs a HeroService.
func NewHeroService(repo Repository, catalog StatsCatalog, blobs blob.Store, log *zap.Logger) *HeroService {
	return &HeroService{repo: repo, catalog: catalog, blobs: blobs, log: log}
}

// List returns the user's heroes.
func (s *HeroService) List(ctx context.Context, userID models.ID) ([]models.Hero, error) {
	return s.repo.ListHeroesByUser(ctx, userID)
}

// Create validates in and stores a new hero for userID. Empty stats are
// seeded from the game-system catalog when the system is known.
func (s *HeroService) Create(ctx context.Context, userID models.ID, in models.HeroInput) (*models.Hero, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if len(in.Stats) == 0 && s.catalog != nil {
		if defaults := s.catalog.DefaultStats(in.System); defaults != nil {
			in.Stats = defaults
		}
	}

	var hero *models.Hero
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		h, err := tx.CreateHero(ctx, userID, in)
		if err != nil {
			return err
		}
		hero = h
		return NewActivityRecorder(tx).Record(ctx, h.ID, userID, models.HeroCreated,
			fmt.Sprintf("Created hero %q", h.Name))
	})
	if err != nil {
		return nil, err
	}
	return hero, nil
}

// Update applies patch to hero. An empty patch still refreshes updatedAt.
func (s *HeroService) Update(ctx context.Context, userID models.ID, hero *models.Hero, patch models.HeroPatch) (*models.Hero, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	var updated *models.Hero
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		h, err := tx.UpdateHero(ctx, hero.ID, patch)
		if err != nil {
			return err
		}
		updated = h
		return NewActivityRecorder(tx).Record(ctx, h.ID, userID, models.HeroUpdated,
			fmt.Sprintf("Updated hero %q", h.Name))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes hero and everything attached to it. The backstory PDF is
// removed after the commit on a best-effort basis.
func (s *HeroService) Delete(ctx context.Context, userID models.ID, hero *models.Hero) error {
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		ok, err := tx.DeleteHero(ctx, hero.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("hero %d: %w", hero.ID, apperr.ErrNotFound)
		}
		return NewActivityRecorder(tx).Record(ctx, hero.ID, userID, models.HeroDeleted,
			fmt.Sprintf("Deleted hero %q", hero.Name))
	})
	if err != nil {
		return err
	}
	s.dropBlob(ctx, hero.BackstoryPDF)
	return nil
}

// BackstoryKey returns a new blob key for a backstory document of the hero.
// Every upload gets its own key.
func BackstoryKey(heroID models.ID) string {
	return fmt.Sprintf("heroes/%d/backstory-%s.pdf", heroID, uuid.NewString())
}

var pdfMagic = []byte("%PDF-")

// UploadBackstory stores r as the hero's backstory PDF, replacing any
// previous document. The previous blob is deleted only after the new key is
// committed; a failed update deletes the new blob instead.
func (s *HeroService) UploadBackstory(ctx context.Context, userID models.ID, hero *models.Hero, r io.Reader) (*models.Hero, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read backstory: %w", err)
	}
	if !bytes.Equal(head, pdfMagic) {
		return nil, apperr.Invalid("body", "must be a PDF document")
	}

	key := BackstoryKey(hero.ID)
	if _, err := s.blobs.Put(ctx, key, br, "application/pdf"); err != nil {
		return nil, fmt.Errorf("store backstory: %w", err)
	}

	var (
		updated *models.Hero
		prevKey string
	)
	err = s.repo.Atomic(ctx, func(tx Repository) error {
		prev, err := tx.GetHero(ctx, hero.ID)
		if err != nil {
			return err
		}
		prevKey = prev.BackstoryPDF
		h, err := tx.SetHeroBackstoryPDF(ctx, hero.ID, key)
		if err != nil {
			return err
		}
		updated = h
		return NewActivityRecorder(tx).Record(ctx, h.ID, userID, models.HeroUpdated,
			fmt.Sprintf("Attached a backstory to %q", h.Name))
	})
	if err != nil {
		s.dropBlob(ctx, key)
		return nil, err
	}
	if prevKey != key {
		s.dropBlob(ctx, prevKey)
	}
	return updated, nil
}

// OpenBackstory streams the hero's backstory PDF.
func (s *HeroService) OpenBackstory(ctx context.Context, hero *models.Hero) (blob.Info, io.ReadCloser, error) {
	if hero.BackstoryPDF == "" {
		return blob.Info{}, nil, fmt.Errorf("backstory: %w", apperr.ErrNotFound)
	}
	return s.blobs.Get(ctx, hero.BackstoryPDF)
}

// RemoveBackstory detaches and deletes the hero's backstory PDF.
func (s *HeroService) RemoveBackstory(ctx context.Context, userID models.ID, hero *models.Hero) (*models.Hero, error) {
	if hero.BackstoryPDF == "" {
		return nil, fmt.Errorf("backstory: %w", apperr.ErrNotFound)
	}
	var updated *models.Hero
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		h, err := tx.SetHeroBackstoryPDF(ctx, hero.ID, "")
		if err != nil {
			return err
		}
		updated = h
		return NewActivityRecorder(tx).Record(ctx, h.ID, userID, models.HeroUpdated,
			fmt.Sprintf("Removed the backstory of %q", h.Name))
	})
	if err != nil {
		return nil, err
	}
	s.dropBlob(ctx, hero.BackstoryPDF)
	return updated, nil
}

func (s *HeroService) dropBlob(ctx context.Context, key string) {
	if key == "" || s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("failed to delete blob", zap.String("key", key), zap.Error(err))
	}
}
