// Package client is the command-line side of HeroKeeper. It talks to the
// REST API through APIClient and keeps an offline copy in LocalStore; both
// satisfy Journal so commands do not care which one they run against.
package client

import (
	"context"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

// Journal is the set of operations the CLI needs from a hero journal.
type Journal interface {
	ListHeroes(ctx context.Context) ([]models.Hero, error)
	CreateHero(ctx context.Context, in models.HeroInput) (*models.Hero, error)
	DeleteHero(ctx context.Context, id models.ID) error
	Activities(ctx context.Context, heroID models.ID, limit int) ([]models.Activity, error)
	ExportAll(ctx context.Context) (*models.ExportedHeroSet, error)
	ImportAll(ctx context.Context, set models.ExportedHeroSet, replace bool) (*models.ImportResult, error)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultActivityLimit
	case limit > maxActivityLimit:
		return maxActivityLimit
	}
	return limit
}

// Copy exports every hero from src and imports the set into dst. With
// replace unset, heroes dst already holds are reported as conflicts in the
// result instead of being overwritten.
func Copy(ctx context.Context, src, dst Journal, replace bool) (*models.ImportResult, error) {
	set, err := src.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	return dst.ImportAll(ctx, *set, replace)
}
