package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

const questColumns = `id, hero_id, title, description, type, completed, created_at, updated_at`

// ListQuestsByHero returns all quests of the hero, open ones first.
func (s *Store) ListQuestsByHero(ctx context.Context, heroID models.ID) ([]models.Quest, error) {
	return s.listQuests(ctx,
		`SELECT `+questColumns+` FROM quests WHERE hero_id = ? ORDER BY completed, id`, heroID)
}

// ActiveQuestsByHero returns the hero's quests that are not completed.
func (s *Store) ActiveQuestsByHero(ctx context.Context, heroID models.ID) ([]models.Quest, error) {
	return s.listQuests(ctx,
		`SELECT `+questColumns+` FROM quests WHERE hero_id = ? AND completed = ? ORDER BY id`,
		heroID, false)
}

func (s *Store) listQuests(ctx context.Context, query string, args ...any) ([]models.Quest, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	quests := []models.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		quests = append(quests, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	return quests, nil
}

// GetQuest returns the quest with the given id.
func (s *Store) GetQuest(ctx context.Context, id models.ID) (*models.Quest, error) {
	q, err := scanQuest(s.queryRow(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get quest", err)
	}
	return q, nil
}

// CreateQuest inserts a quest under heroID.
func (s *Store) CreateQuest(ctx context.Context, heroID models.ID, in models.QuestInput) (*models.Quest, error) {
	now := s.timestamp()
	q := &models.Quest{
		HeroID:      heroID,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Completed:   in.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if q.Type == "" {
		q.Type = models.QuestSide
	}
	err := s.queryRow(ctx,
		`INSERT INTO quests (hero_id, title, description, type, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		q.HeroID, q.Title, q.Description, string(q.Type), q.Completed, q.CreatedAt, q.UpdatedAt,
	).Scan(&q.ID)
	if err != nil {
		return nil, fmt.Errorf("create quest: %w", err)
	}
	return q, nil
}

// UpdateQuest applies patch to the stored quest and bumps updated_at.
func (s *Store) UpdateQuest(ctx context.Context, id models.ID, patch models.QuestPatch) (*models.Quest, error) {
	var updated *models.Quest
	err := s.WithTx(ctx, func(tx *Store) error {
		q, err := tx.GetQuest(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(q)
		q.UpdatedAt = tx.timestamp()
		res, err := tx.exec(ctx,
			`UPDATE quests SET title = ?, description = ?, type = ?, completed = ?, updated_at = ?
			 WHERE id = ?`,
			q.Title, q.Description, string(q.Type), q.Completed, q.UpdatedAt, q.ID,
		)
		if err != nil {
			return fmt.Errorf("update quest: %w", err)
		}
		if ok, err := affected(res); err != nil || !ok {
			return fmt.Errorf("update quest: %w", orNotFound(err))
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteQuest removes a quest and reports whether it existed.
func (s *Store) DeleteQuest(ctx context.Context, id models.ID) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete quest: %w", err)
	}
	return affected(res)
}

func scanQuest(sc scanner) (*models.Quest, error) {
	var (
		q     models.Quest
		qtype string
	)
	if err := sc.Scan(&q.ID, &q.HeroID, &q.Title, &q.Description, &qtype, &q.Completed,
		&q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.Type = models.QuestType(qtype)
	return &q, nil
}
