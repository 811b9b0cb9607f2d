package models

import (
	"strconv"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

// ExportVersion is written into every ExportedHeroSet.
const ExportVersion = "1.0"

// ExportedHero is the portable form of one hero and its journal.
// The layout is an interchange format and must stay stable.
type ExportedHero struct {
	Hero     Hero         `json:"hero"`
	Npcs     []Npc        `json:"npcs"`
	Sessions []SessionLog `json:"sessions"`
	Quests   []Quest      `json:"quests"`
}

// ExportedHeroSet is the portable form of all heroes of a user.
type ExportedHeroSet struct {
	Version    string         `json:"version"`
	ExportDate string         `json:"exportDate"`
	Heroes     []ExportedHero `json:"heroes"`
}

// Validate checks the document shape before anything is written.
func (e ExportedHero) Validate() error {
	var v apperr.ValidationError
	if e.Hero.Name == "" {
		v.Add("hero.name", "is required")
	}
	if e.Hero.System == "" {
		v.Add("hero.system", "is required")
	}
	for i, n := range e.Npcs {
		if n.Name == "" {
			v.Add(indexed("npcs", i, "name"), "is required")
		}
	}
	for i, s := range e.Sessions {
		if s.Title == "" {
			v.Add(indexed("sessions", i, "title"), "is required")
		}
		if _, ok := NormalizeDate(s.Date); !ok {
			v.Add(indexed("sessions", i, "date"), "must be a date")
		}
	}
	for i, q := range e.Quests {
		if q.Title == "" {
			v.Add(indexed("quests", i, "title"), "is required")
		}
	}
	return v.Err()
}

// Validate checks the collection envelope.
func (s ExportedHeroSet) Validate() error {
	var v apperr.ValidationError
	if s.Version == "" {
		v.Add("version", "is required")
	}
	if s.Heroes == nil {
		v.Add("heroes", "is required")
	}
	return v.Err()
}

// ImportError describes one hero that could not be imported from a set.
type ImportError struct {
	Index    int    `json:"index"`
	HeroName string `json:"heroName"`
	Message  string `json:"message"`
}

// ImportResult summarizes a collection import.
type ImportResult struct {
	Success  bool          `json:"success"`
	Imported int           `json:"imported"`
	Total    int           `json:"total"`
	Errors   []ImportError `json:"errors"`
}

func indexed(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}
