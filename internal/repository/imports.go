package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

// FindImportedHero returns the hero of userID that an import of a document
// carrying hero id key should collide with: the user's hero with that id, or
// else the user's hero previously imported from such a document. The second
// result is the found hero's own import key (0 when it was not imported).
func (s *Store) FindImportedHero(ctx context.Context, userID, key models.ID) (*models.Hero, models.ID, error) {
	var importKey sql.NullInt64
	row := s.queryRow(ctx,
		`SELECT `+heroColumns+`, import_key FROM heroes
		 WHERE user_id = ? AND (id = ? OR import_key = ?)
		 ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END, id
		 LIMIT 1`,
		userID, key, key, key)
	h, err := scanHero(scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &importKey)...)
	}))
	if err != nil {
		return nil, 0, notFound("find imported hero", err)
	}
	return h, models.ID(importKey.Int64), nil
}

// InsertImportedHero inserts a hero built from an import document. A
// non-zero id re-creates a replaced hero under its old id; importKey is
// stored so later imports of the same document find this row.
func (s *Store) InsertImportedHero(ctx context.Context, userID, id, importKey models.ID, in models.HeroInput) (*models.Hero, error) {
	now := s.timestamp()
	h := &models.Hero{
		ID:        id,
		UserID:    userID,
		Name:      in.Name,
		System:    in.System,
		Race:      in.Race,
		Class:     in.Class,
		Level:     in.Level,
		Age:       in.Age,
		Deceased:  in.Deceased,
		Portrait:  in.Portrait,
		Backstory: in.Backstory,
		Tags:      in.Tags.Normalize(),
		Stats:     in.Stats,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if h.Stats == nil {
		h.Stats = models.Stats{}
	}
	var key any
	if importKey != 0 {
		key = int64(importKey)
	}

	cols := `user_id, name, system, race, class, level, age, deceased,
			portrait, backstory, backstory_pdf, tags, stats, import_key, created_at, updated_at`
	marks := `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	args := []any{h.UserID, h.Name, h.System, h.Race, h.Class, h.Level, nullableInt(h.Age), h.Deceased,
		h.Portrait, h.Backstory, h.BackstoryPDF, h.Tags, h.Stats, key, h.CreatedAt, h.UpdatedAt}
	if id != 0 {
		cols = "id, " + cols
		marks = "?, " + marks
		args = append([]any{id}, args...)
	}
	err := s.queryRow(ctx,
		`INSERT INTO heroes (`+cols+`) VALUES (`+marks+`) RETURNING id`, args...,
	).Scan(&h.ID)
	if err != nil {
		return nil, fmt.Errorf("insert imported hero: %w", err)
	}
	return h, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }
