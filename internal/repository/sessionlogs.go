package repository

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

const sessionLogColumns = `id, hero_id, title, date, content, tags, created_at, updated_at`

// ListSessionLogsByHero returns the hero's session logs, most recent date
// first. Logs sharing a date are ordered by id, newest first.
func (s *Store) ListSessionLogsByHero(ctx context.Context, heroID models.ID) ([]models.SessionLog, error) {
	rows, err := s.query(ctx,
		`SELECT `+sessionLogColumns+` FROM session_logs WHERE hero_id = ? ORDER BY date DESC, id DESC`,
		heroID)
	if err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	defer rows.Close()

	logs := []models.SessionLog{}
	for rows.Next() {
		l, err := scanSessionLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session log: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list session logs: %w", err)
	}
	return logs, nil
}

// LatestSessionLogByHero returns the session log with the greatest date,
// breaking ties by the greatest id. It returns apperr.ErrNotFound when the
// hero has no logs.
func (s *Store) LatestSessionLogByHero(ctx context.Context, heroID models.ID) (*models.SessionLog, error) {
	l, err := scanSessionLog(s.queryRow(ctx,
		`SELECT `+sessionLogColumns+` FROM session_logs WHERE hero_id = ?
		 ORDER BY date DESC, id DESC LIMIT 1`, heroID))
	if err != nil {
		return nil, notFound("latest session log", err)
	}
	return l, nil
}

// GetSessionLog returns the session log with the given id.
func (s *Store) GetSessionLog(ctx context.Context, id models.ID) (*models.SessionLog, error) {
	l, err := scanSessionLog(s.queryRow(ctx,
		`SELECT `+sessionLogColumns+` FROM session_logs WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("get session log", err)
	}
	return l, nil
}

// CreateSessionLog inserts a session log under heroID. Date must already be
// normalized to YYYY-MM-DD.
func (s *Store) CreateSessionLog(ctx context.Context, heroID models.ID, in models.SessionLogInput) (*models.SessionLog, error) {
	now := s.timestamp()
	l := &models.SessionLog{
		HeroID:    heroID,
		Title:     in.Title,
		Date:      in.Date,
		Content:   in.Content,
		Tags:      in.Tags.Normalize(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.queryRow(ctx,
		`INSERT INTO session_logs (hero_id, title, date, content, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		l.HeroID, l.Title, l.Date, l.Content, l.Tags, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return nil, fmt.Errorf("create session log: %w", err)
	}
	return l, nil
}

// UpdateSessionLog applies patch to the stored log and bumps updated_at.
func (s *Store) UpdateSessionLog(ctx context.Context, id models.ID, patch models.SessionLogPatch) (*models.SessionLog, error) {
	var updated *models.SessionLog
	err := s.WithTx(ctx, func(tx *Store) error {
		l, err := tx.GetSessionLog(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(l)
		l.UpdatedAt = tx.timestamp()
		res, err := tx.exec(ctx,
			`UPDATE session_logs SET title = ?, date = ?, content = ?, tags = ?, updated_at = ?
			 WHERE id = ?`,
			l.Title, l.Date, l.Content, l.Tags, l.UpdatedAt, l.ID,
		)
		if err != nil {
			return fmt.Errorf("update session log: %w", err)
		}
		if ok, err := affected(res); err != nil || !ok {
			return fmt.Errorf("update session log: %w", orNotFound(err))
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSessionLog removes a session log. NPCs that were first met in it
// keep existing with their first session cleared.
func (s *Store) DeleteSessionLog(ctx context.Context, id models.ID) (bool, error) {
	var deleted bool
	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.exec(ctx,
			`UPDATE npcs SET first_session_id = NULL WHERE first_session_id = ?`, id); err != nil {
			return fmt.Errorf("unlink npcs: %w", err)
		}
		res, err := tx.exec(ctx, `DELETE FROM session_logs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete session log: %w", err)
		}
		deleted, err = affected(res)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func scanSessionLog(sc scanner) (*models.SessionLog, error) {
	var l models.SessionLog
	if err := sc.Scan(&l.ID, &l.HeroID, &l.Title, &l.Date, &l.Content, &l.Tags,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
