package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

const (
	// DefaultActivityLimit is used when the caller does not ask for a size.
	DefaultActivityLimit = 20
	// MaxActivityLimit caps a single activity page.
	MaxActivityLimit = 100
)

// ActivityRecorder appends to and reads the per-hero activity trail.
type ActivityRecorder struct {
	repo ActivityRepository
}

// NewActivityRecorder constructs an ActivityRecorder.
func NewActivityRecorder(repo ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo}
}

// Record appends one entry. It runs synchronously; an error here fails the
// mutation that triggered it.
func (r *ActivityRecorder) Record(ctx context.Context, heroID, userID models.ID, kind models.ActivityType, message string) error {
	if !kind.Valid() {
		return fmt.Errorf("record activity: unknown type %q", kind)
	}
	a := &models.Activity{HeroID: heroID, UserID: userID, Type: kind, Message: message}
	return r.repo.CreateActivity(ctx, a)
}

// List returns the newest entries for the hero. A non-positive limit means
// DefaultActivityLimit; larger limits are clamped to MaxActivityLimit.
func (r *ActivityRecorder) List(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error) {
	switch {
	case limit <= 0:
		limit = DefaultActivityLimit
	case limit > MaxActivityLimit:
		limit = MaxActivityLimit
	}
	return r.repo.ListActivitiesByHero(ctx, heroID, limit)
}
