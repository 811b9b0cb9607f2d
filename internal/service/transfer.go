package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/blob"
	"github.com/atinyakov/HeroKeeper/internal/models"
	"github.com/atinyakov/HeroKeeper/internal/telemetry"
)

// TransferService exports heroes as portable documents and imports them
// back, possibly into another account.
type TransferService struct {
	repo  Repository
	blobs blob.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewTransferService constructs a TransferService. blobs may be nil.
func NewTransferService(repo Repository, blobs blob.Store, log *zap.Logger) *TransferService {
	return &TransferService{repo: repo, blobs: blobs, log: log, now: time.Now}
}

// ExportHero bundles the hero with its NPCs, session logs and quests.
// Attachments are not part of the document.
func (s *TransferService) ExportHero(ctx context.Context, hero *models.Hero) (*models.ExportedHero, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "transfer.ExportHero")
	defer span.End()
	span.SetAttributes(attribute.Int64("hero.id", int64(hero.ID)))

	npcs, err := s.repo.ListNpcsByHero(ctx, hero.ID)
	if err != nil {
		return nil, fmt.Errorf("export hero %d: %w", hero.ID, err)
	}
	sessions, err := s.repo.ListSessionLogsByHero(ctx, hero.ID)
	if err != nil {
		return nil, fmt.Errorf("export hero %d: %w", hero.ID, err)
	}
	quests, err := s.repo.ListQuestsByHero(ctx, hero.ID)
	if err != nil {
		return nil, fmt.Errorf("export hero %d: %w", hero.ID, err)
	}

	h := *hero
	h.BackstoryPDF = ""
	return &models.ExportedHero{Hero: h, Npcs: npcs, Sessions: sessions, Quests: quests}, nil
}

// ExportAll bundles every hero of the user. Any failed sub-export fails the
// whole export.
func (s *TransferService) ExportAll(ctx context.Context, userID models.ID) (*models.ExportedHeroSet, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "transfer.ExportAll")
	defer span.End()

	heroes, err := s.repo.ListHeroesByUser(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("export all: %w", err)
	}
	set := &models.ExportedHeroSet{
		Version:    models.ExportVersion,
		ExportDate: s.now().UTC().Format(time.RFC3339),
		Heroes:     make([]models.ExportedHero, 0, len(heroes)),
	}
	for i := range heroes {
		doc, err := s.ExportHero(ctx, &heroes[i])
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		set.Heroes = append(set.Heroes, *doc)
	}
	span.SetAttributes(attribute.Int("heroes", len(set.Heroes)))
	return set, nil
}

// ImportHero stores doc as a hero of userID inside one transaction.
//
// A document hero id is matched against the user's own heroes and against
// heroes the user imported from a document with that id. On a match the
// import fails with *apperr.ConflictError unless replace is set, in which
// case the old hero is deleted and the document is re-created under the old
// id. Documents without a hero id always create a new hero. Child ids are
// never reused: children are re-keyed to the hero and NPC first-session
// references follow their sessions.
func (s *TransferService) ImportHero(ctx context.Context, userID models.ID, doc models.ExportedHero, replace bool) (*models.Hero, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "transfer.ImportHero")
	defer span.End()
	span.SetAttributes(attribute.Bool("replace", replace))

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var (
		created  *models.Hero
		staleKey string
	)
	err := s.repo.Atomic(ctx, func(tx Repository) error {
		var reuseID models.ID
		importKey := doc.Hero.ID
		if doc.Hero.ID != 0 {
			existing, key, err := tx.FindImportedHero(ctx, userID, doc.Hero.ID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
			case err != nil:
				return err
			default:
				if !replace {
					return &apperr.ConflictError{HeroID: int64(existing.ID), HeroName: existing.Name}
				}
				if _, err := tx.DeleteHero(ctx, existing.ID); err != nil {
					return err
				}
				staleKey = existing.BackstoryPDF
				reuseID = existing.ID
				if existing.ID == doc.Hero.ID {
					importKey = key
				}
			}
		}

		h, err := importTree(ctx, tx, userID, reuseID, importKey, doc)
		if err != nil {
			return err
		}
		created = h
		return NewActivityRecorder(tx).Record(ctx, h.ID, userID, models.HeroCreated,
			fmt.Sprintf("Imported hero %q", h.Name))
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if staleKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, staleKey); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.log.Warn("failed to delete replaced backstory", zap.String("key", staleKey), zap.Error(err))
		}
	}
	span.SetAttributes(attribute.Int64("hero.id", int64(created.ID)))
	return created, nil
}

func importTree(ctx context.Context, tx Repository, userID, heroID, importKey models.ID, doc models.ExportedHero) (*models.Hero, error) {
	src := doc.Hero
	in := models.HeroInput{
		Name:      src.Name,
		System:    src.System,
		Race:      src.Race,
		Class:     src.Class,
		Level:     src.Level,
		Age:       src.Age,
		Deceased:  src.Deceased,
		Portrait:  src.Portrait,
		Backstory: src.Backstory,
		Tags:      src.Tags,
		Stats:     src.Stats,
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	hero, err := tx.InsertImportedHero(ctx, userID, heroID, importKey, in)
	if err != nil {
		return nil, err
	}

	sessionIDs := make(map[models.ID]models.ID, len(doc.Sessions))
	for i, sl := range doc.Sessions {
		in := models.SessionLogInput{Title: sl.Title, Date: sl.Date, Content: sl.Content, Tags: sl.Tags}
		in.Normalize()
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("sessions[%d]: %w", i, err)
		}
		created, err := tx.CreateSessionLog(ctx, hero.ID, in)
		if err != nil {
			return nil, err
		}
		if sl.ID != 0 {
			sessionIDs[sl.ID] = created.ID
		}
	}

	for i, n := range doc.Npcs {
		in := models.NpcInput{
			Name:         n.Name,
			Image:        n.Image,
			Relationship: n.Relationship,
			Location:     n.Location,
			Notes:        n.Notes,
			Favorite:     n.Favorite,
		}
		if n.FirstSessionID != nil {
			if newID, ok := sessionIDs[*n.FirstSessionID]; ok {
				in.FirstSessionID = &newID
			}
		}
		in.Normalize()
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("npcs[%d]: %w", i, err)
		}
		if _, err := tx.CreateNpc(ctx, hero.ID, in); err != nil {
			return nil, err
		}
	}

	for i, q := range doc.Quests {
		in := models.QuestInput{Title: q.Title, Description: q.Description, Type: q.Type, Completed: q.Completed}
		in.Normalize()
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("quests[%d]: %w", i, err)
		}
		if _, err := tx.CreateQuest(ctx, hero.ID, in); err != nil {
			return nil, err
		}
	}
	return hero, nil
}

// ImportAll imports every hero of set independently. One failing hero does
// not prevent the others from being imported.
func (s *TransferService) ImportAll(ctx context.Context, userID models.ID, set models.ExportedHeroSet, replace bool) (models.ImportResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "transfer.ImportAll")
	defer span.End()

	if err := set.Validate(); err != nil {
		return models.ImportResult{}, err
	}

	result := models.ImportResult{Total: len(set.Heroes), Errors: []models.ImportError{}}
	for i, doc := range set.Heroes {
		if _, err := s.ImportHero(ctx, userID, doc, replace); err != nil {
			var conflict *apperr.ConflictError
			var invalid *apperr.ValidationError
			if !errors.As(err, &conflict) && !errors.As(err, &invalid) {
				s.log.Error("hero import failed", zap.Int("index", i), zap.Error(err))
			}
			result.Errors = append(result.Errors, models.ImportError{
				Index:    i,
				HeroName: doc.Hero.Name,
				Message:  err.Error(),
			})
			continue
		}
		result.Imported++
	}
	result.Success = result.Imported == result.Total
	span.SetAttributes(attribute.Int("imported", result.Imported), attribute.Int("total", result.Total))
	return result, nil
}
