package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/models"
)

// MaxLocalActivities is how many activity rows the local store keeps.
const MaxLocalActivities = 50

type localData struct {
	Heroes     []models.ExportedHero `json:"heroes"`
	Activities []models.Activity     `json:"activities"`
	NextID     models.ID             `json:"nextId"`
}

// LocalStore is a Journal kept in a single JSON file. Every mutation is
// written through to disk before it returns.
type LocalStore struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	data localData
}

// OpenLocalStore loads path, starting empty when the file does not exist.
func OpenLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{path: path, now: time.Now}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read local store: %w", err)
	default:
		if err := json.Unmarshal(b, &s.data); err != nil {
			return nil, fmt.Errorf("decode local store %s: %w", path, err)
		}
	}
	for _, h := range s.data.Heroes {
		if h.Hero.ID >= s.data.NextID {
			s.data.NextID = h.Hero.ID + 1
		}
	}
	if s.data.NextID == 0 {
		s.data.NextID = 1
	}
	return s, nil
}

// save must be called with mu held.
func (s *LocalStore) save() error {
	b, err := json.MarshalIndent(&s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *LocalStore) nextID() models.ID {
	id := s.data.NextID
	s.data.NextID++
	return id
}

func (s *LocalStore) find(id models.ID) int {
	for i, h := range s.data.Heroes {
		if h.Hero.ID == id {
			return i
		}
	}
	return -1
}

// record appends an activity and drops the oldest rows beyond the cap.
func (s *LocalStore) record(heroID models.ID, kind models.ActivityType, msg string) {
	var last models.ID
	if n := len(s.data.Activities); n > 0 {
		last = s.data.Activities[n-1].ID
	}
	s.data.Activities = append(s.data.Activities, models.Activity{
		ID: last + 1, HeroID: heroID, Type: kind, Message: msg, CreatedAt: s.now().UTC(),
	})
	if over := len(s.data.Activities) - MaxLocalActivities; over > 0 {
		s.data.Activities = append([]models.Activity(nil), s.data.Activities[over:]...)
	}
}

// ListHeroes returns every stored hero, most recently updated first.
func (s *LocalStore) ListHeroes(context.Context) ([]models.Hero, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Hero, 0, len(s.data.Heroes))
	for _, h := range s.data.Heroes {
		out = append(out, cloneHero(h.Hero))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// CreateHero validates in and stores it as a hero with an empty journal.
func (s *LocalStore) CreateHero(_ context.Context, in models.HeroInput) (*models.Hero, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	h := models.Hero{
		ID: s.nextID(), Name: in.Name, System: in.System, Race: in.Race, Class: in.Class,
		Level: in.Level, Age: in.Age, Deceased: in.Deceased, Portrait: in.Portrait,
		Backstory: in.Backstory, Tags: in.Tags, Stats: in.Stats, CreatedAt: now, UpdatedAt: now,
	}
	s.data.Heroes = append(s.data.Heroes, models.ExportedHero{
		Hero: cloneHero(h), Npcs: []models.Npc{}, Sessions: []models.SessionLog{}, Quests: []models.Quest{},
	})
	s.record(h.ID, models.HeroCreated, fmt.Sprintf("Created hero %q", h.Name))
	if err := s.save(); err != nil {
		return nil, err
	}
	h = cloneHero(h)
	return &h, nil
}

// DeleteHero drops the hero with its journal. Its activity rows are kept.
func (s *LocalStore) DeleteHero(_ context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	name := s.data.Heroes[i].Hero.Name
	s.data.Heroes = append(s.data.Heroes[:i], s.data.Heroes[i+1:]...)
	s.record(id, models.HeroDeleted, fmt.Sprintf("Deleted hero %q", name))
	return s.save()
}

// Activities returns the newest rows for heroID first.
func (s *LocalStore) Activities(_ context.Context, heroID models.ID, limit int) ([]models.Activity, error) {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Activity{}
	for i := len(s.data.Activities) - 1; i >= 0 && len(out) < limit; i-- {
		if a := s.data.Activities[i]; a.HeroID == heroID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ExportAll returns a detached copy of every hero with its journal.
func (s *LocalStore) ExportAll(context.Context) (*models.ExportedHeroSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := &models.ExportedHeroSet{
		Version:    models.ExportVersion,
		ExportDate: s.now().UTC().Format(time.RFC3339),
		Heroes:     make([]models.ExportedHero, 0, len(s.data.Heroes)),
	}
	for _, doc := range s.data.Heroes {
		set.Heroes = append(set.Heroes, cloneDoc(doc))
	}
	return set, nil
}

// ImportAll stores every valid hero of set. Document ids are kept so a
// mirrored server journal keeps its numbering; a hero without an id gets a
// fresh one. A hero whose id is already present is a conflict unless replace
// is set.
func (s *LocalStore) ImportAll(_ context.Context, set models.ExportedHeroSet, replace bool) (*models.ImportResult, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &models.ImportResult{Total: len(set.Heroes), Errors: []models.ImportError{}}
	for i, doc := range set.Heroes {
		if err := doc.Validate(); err != nil {
			res.Errors = append(res.Errors, models.ImportError{Index: i, HeroName: doc.Hero.Name, Message: err.Error()})
			continue
		}
		doc = cloneDoc(doc)
		if doc.Hero.ID == 0 {
			doc.Hero.ID = s.nextID()
		} else if doc.Hero.ID >= s.data.NextID {
			s.data.NextID = doc.Hero.ID + 1
		}
		doc.Hero.BackstoryPDF = ""

		if j := s.find(doc.Hero.ID); j >= 0 {
			if !replace {
				existing := s.data.Heroes[j].Hero
				conflict := &apperr.ConflictError{HeroID: int64(existing.ID), HeroName: existing.Name}
				res.Errors = append(res.Errors, models.ImportError{Index: i, HeroName: doc.Hero.Name, Message: conflict.Error()})
				continue
			}
			s.data.Heroes[j] = doc
		} else {
			s.data.Heroes = append(s.data.Heroes, doc)
		}
		s.record(doc.Hero.ID, models.HeroCreated, fmt.Sprintf("Imported hero %q", doc.Hero.Name))
		res.Imported++
	}
	res.Success = len(res.Errors) == 0
	if res.Imported > 0 {
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// cloneDoc copies doc so the result shares no slices, maps or pointers with it.
func cloneDoc(doc models.ExportedHero) models.ExportedHero {
	out := models.ExportedHero{
		Hero:     cloneHero(doc.Hero),
		Npcs:     make([]models.Npc, len(doc.Npcs)),
		Sessions: make([]models.SessionLog, len(doc.Sessions)),
		Quests:   append([]models.Quest{}, doc.Quests...),
	}
	for i, n := range doc.Npcs {
		if n.FirstSessionID != nil {
			id := *n.FirstSessionID
			n.FirstSessionID = &id
		}
		out.Npcs[i] = n
	}
	for i, sl := range doc.Sessions {
		sl.Tags = cloneTags(sl.Tags)
		out.Sessions[i] = sl
	}
	return out
}

func cloneHero(h models.Hero) models.Hero {
	if h.Age != nil {
		age := *h.Age
		h.Age = &age
	}
	h.Tags = cloneTags(h.Tags)
	if h.Stats != nil {
		stats := make(models.Stats, len(h.Stats))
		for k, v := range h.Stats {
			stats[k] = v
		}
		h.Stats = stats
	}
	return h
}

func cloneTags(t models.Tags) models.Tags {
	if t == nil {
		return nil
	}
	return append(models.Tags{}, t...)
}
