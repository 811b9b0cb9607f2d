package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

const heroColumns = `id, user_id, name, system, race, class, level, age, deceased,
	portrait, backstory, backstory_pdf, tags, stats, created_at, updated_at`

// ListHeroesByUser returns the user's heroes ordered by name.
func (s *Store) ListHeroesByUser(ctx context.Context, userID models.ID) ([]models.Hero, error) {
	rows, err := s.query(ctx,
		`SELECT `+heroColumns+` FROM heroes WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list heroes: %w", err)
	}
	defer rows.Close()

	heroes := []models.Hero{}
	for rows.Next() {
		h, err := scanHero(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hero: %w", err)
		}
		heroes = append(heroes, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list heroes: %w", err)
	}
	return heroes, nil
}

// GetHero returns the hero with the given id regardless of owner.
func (s *Store) GetHero(ctx context.Context, id models.ID) (*models.Hero, error) {
	h, err := scanHero(s.queryRow(ctx, `SELECT `+heroColumns+` FROM heroes WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get hero", err)
	}
	return h, nil
}

// CreateHero inserts a hero owned by userID. The input is expected to be
// normalized and validated.
func (s *Store) CreateHero(ctx context.Context, userID models.ID, in models.HeroInput) (*models.Hero, error) {
	now := s.timestamp()
	h := &models.Hero{
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
	err := s.queryRow(ctx,
		`INSERT INTO heroes (user_id, name, system, race, class, level, age, deceased,
			portrait, backstory, backstory_pdf, tags, stats, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		h.UserID, h.Name, h.System, h.Race, h.Class, h.Level, nullableInt(h.Age), h.Deceased,
		h.Portrait, h.Backstory, h.BackstoryPDF, h.Tags, h.Stats, h.CreatedAt, h.UpdatedAt,
	).Scan(&h.ID)
	if err != nil {
		return nil, fmt.Errorf("create hero: %w", err)
	}
	return h, nil
}

// UpdateHero applies patch to the stored hero and bumps updated_at, even
// when the patch is empty.
func (s *Store) UpdateHero(ctx context.Context, id models.ID, patch models.HeroPatch) (*models.Hero, error) {
	var updated *models.Hero
	err := s.WithTx(ctx, func(tx *Store) error {
		h, err := tx.GetHero(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(h)
		h.UpdatedAt = tx.timestamp()
		if err := tx.saveHero(ctx, h); err != nil {
			return err
		}
		updated = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetHeroBackstoryPDF records the blob key of the hero's backstory document.
// An empty key clears it.
func (s *Store) SetHeroBackstoryPDF(ctx context.Context, id models.ID, key string) (*models.Hero, error) {
	var updated *models.Hero
	err := s.WithTx(ctx, func(tx *Store) error {
		h, err := tx.GetHero(ctx, id)
		if err != nil {
			return err
		}
		h.BackstoryPDF = key
		h.UpdatedAt = tx.timestamp()
		if err := tx.saveHero(ctx, h); err != nil {
			return err
		}
		updated = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) saveHero(ctx context.Context, h *models.Hero) error {
	res, err := s.exec(ctx,
		`UPDATE heroes SET name = ?, system = ?, race = ?, class = ?, level = ?, age = ?,
			deceased = ?, portrait = ?, backstory = ?, backstory_pdf = ?, tags = ?, stats = ?,
			updated_at = ?
		 WHERE id = ?`,
		h.Name, h.System, h.Race, h.Class, h.Level, nullableInt(h.Age),
		h.Deceased, h.Portrait, h.Backstory, h.BackstoryPDF, h.Tags, h.Stats,
		h.UpdatedAt, h.ID,
	)
	if err != nil {
		return fmt.Errorf("update hero: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("update hero: %w", err)
	}
	if !ok {
		return fmt.Errorf("update hero: %w", apperr.ErrNotFound)
	}
	return nil
}

// DeleteHero removes the hero together with its NPCs, session logs and
// quests. Activities are kept. It reports whether the hero existed.
func (s *Store) DeleteHero(ctx context.Context, id models.ID) (bool, error) {
	var deleted bool
	err := s.WithTx(ctx, func(tx *Store) error {
		for _, q := range []string{
			`DELETE FROM npcs WHERE hero_id = ?`,
			`DELETE FROM session_logs WHERE hero_id = ?`,
			`DELETE FROM quests WHERE hero_id = ?`,
		} {
			if _, err := tx.exec(ctx, q, id); err != nil {
				return fmt.Errorf("delete hero children: %w", err)
			}
		}
		res, err := tx.exec(ctx, `DELETE FROM heroes WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete hero: %w", err)
		}
		deleted, err = affected(res)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func scanHero(sc scanner) (*models.Hero, error) {
	var (
		h   models.Hero
		age sql.NullInt64
	)
	err := sc.Scan(&h.ID, &h.UserID, &h.Name, &h.System, &h.Race, &h.Class, &h.Level, &age,
		&h.Deceased, &h.Portrait, &h.Backstory, &h.BackstoryPDF, &h.Tags, &h.Stats,
		&h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if age.Valid {
		a := int(age.Int64)
		h.Age = &a
	}
	return &h, nil
}
