package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

const npcColumns = `id, hero_id, name, image, relationship, location, notes, favorite,
	first_session_id, created_at, updated_at`

// ListNpcsByHero returns the hero's NPCs, favorites first, then by name.
func (s *Store) ListNpcsByHero(ctx context.Context, heroID models.ID) ([]models.Npc, error) {
	rows, err := s.query(ctx,
		`SELECT `+npcColumns+` FROM npcs WHERE hero_id = ? ORDER BY favorite DESC, name, id`, heroID)
	if err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	defer rows.Close()

	npcs := []models.Npc{}
	for rows.Next() {
		n, err := scanNpc(rows)
		if err != nil {
			return nil, fmt.Errorf("scan npc: %w", err)
		}
		npcs = append(npcs, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	return npcs, nil
}

// GetNpc returns the NPC with the given id.
func (s *Store) GetNpc(ctx context.Context, id models.ID) (*models.Npc, error) {
	n, err := scanNpc(s.queryRow(ctx, `SELECT `+npcColumns+` FROM npcs WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get npc", err)
	}
	return n, nil
}

// CreateNpc inserts an NPC under heroID.
func (s *Store) CreateNpc(ctx context.Context, heroID models.ID, in models.NpcInput) (*models.Npc, error) {
	now := s.timestamp()
	n := &models.Npc{
		HeroID:         heroID,
		Name:           in.Name,
		Image:          in.Image,
		Relationship:   in.Relationship,
		Location:       in.Location,
		Notes:          in.Notes,
		Favorite:       in.Favorite,
		FirstSessionID: in.FirstSessionID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if n.Relationship == "" {
		n.Relationship = models.RelationshipNeutral
	}
	err := s.queryRow(ctx,
		`INSERT INTO npcs (hero_id, name, image, relationship, location, notes, favorite,
			first_session_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		n.HeroID, n.Name, n.Image, string(n.Relationship), n.Location, n.Notes, n.Favorite,
		nullableID(n.FirstSessionID), n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("create npc: %w", err)
	}
	return n, nil
}

// UpdateNpc applies patch to the stored NPC and bumps updated_at.
func (s *Store) UpdateNpc(ctx context.Context, id models.ID, patch models.NpcPatch) (*models.Npc, error) {
	var updated *models.Npc
	err := s.WithTx(ctx, func(tx *Store) error {
		n, err := tx.GetNpc(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(n)
		n.UpdatedAt = tx.timestamp()
		res, err := tx.exec(ctx,
			`UPDATE npcs SET name = ?, image = ?, relationship = ?, location = ?, notes = ?,
				favorite = ?, first_session_id = ?, updated_at = ?
			 WHERE id = ?`,
			n.Name, n.Image, string(n.Relationship), n.Location, n.Notes,
			n.Favorite, nullableID(n.FirstSessionID), n.UpdatedAt, n.ID,
		)
		if err != nil {
			return fmt.Errorf("update npc: %w", err)
		}
		if ok, err := affected(res); err != nil || !ok {
			return fmt.Errorf("update npc: %w", orNotFound(err))
		}
		updated = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteNpc removes an NPC and reports whether it existed.
func (s *Store) DeleteNpc(ctx context.Context, id models.ID) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM npcs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete npc: %w", err)
	}
	return affected(res)
}

func scanNpc(sc scanner) (*models.Npc, error) {
	var (
		n     models.Npc
		rel   string
		first sql.NullInt64
	)
	err := sc.Scan(&n.ID, &n.HeroID, &n.Name, &n.Image, &rel, &n.Location, &n.Notes,
		&n.Favorite, &first, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Relationship = models.Relationship(rel)
	n.FirstSessionID = scanNullableID(first)
	return &n, nil
}

// orNotFound returns err, or apperr.ErrNotFound when err is nil.
func orNotFound(err error) error {
	if err != nil {
		return err
	}
	return apperr.ErrNotFound
}
