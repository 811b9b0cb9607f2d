package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

// CreateActivity appends an entry to the hero's activity trail and fills
// its id and timestamp.
func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) error {
	a.CreatedAt = s.timestamp()
	err := s.queryRow(ctx,
		`INSERT INTO activities (hero_id, user_id, type, message, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`,
		a.HeroID, a.UserID, string(a.Type), a.Message, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ListActivitiesByHero returns up to limit entries for the hero, newest first.
func (s *Store) ListActivitiesByHero(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error) {
	rows, err := s.query(ctx,
		`SELECT id, hero_id, user_id, type, message, created_at FROM activities
		 WHERE hero_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, heroID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var (
			a     models.Activity
			atype string
		)
		if err := rows.Scan(&a.ID, &a.HeroID, &a.UserID, &atype, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = models.ActivityType(atype)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}
