package service

import (
	"context"
	"testing"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

type mockActivityRepo struct {
	created   []models.Activity
	lastLimit int
}

func (m *mockActivityRepo) CreateActivity(_ context.Context, a *models.Activity) error {
	m.created = append(m.created, *a)
	return nil
}

func (m *mockActivityRepo) ListActivitiesByHero(_ context.Context, _ models.ID, limit int) ([]models.Activity, error) {
	m.lastLimit = limit
	return nil, nil
}

func TestActivityRecorder_ListLimits(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultActivityLimit},
		{-4, DefaultActivityLimit},
		{5, 5},
		{100, 100},
		{5000, MaxActivityLimit},
	}
	for _, tt := range tests {
		repo := &mockActivityRepo{}
		if _, err := NewActivityRecorder(repo).List(context.Background(), 1, tt.in); err != nil {
			t.Fatal(err)
		}
		if repo.lastLimit != tt.want {
			t.Errorf("List(limit=%d) used %d; want %d", tt.in, repo.lastLimit, tt.want)
		}
	}
}

func TestActivityRecorder_Record(t *testing.T) {
	repo := &mockActivityRepo{}
	r := NewActivityRecorder(repo)

	if err := r.Record(context.Background(), 1, 2, models.QuestCreated, `Took on "Find the map"`); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].Type != models.QuestCreated || repo.created[0].UserID != 2 {
		t.Fatalf("unexpected activity %+v", repo.created)
	}
	if err := r.Record(context.Background(), 1, 2, "hero_renamed", "x"); err == nil {
		t.Fatal("expected error for unknown activity type")
	}
}
