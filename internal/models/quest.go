package models

import (
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

// QuestType categorizes a quest.
type QuestType string

const (
	QuestMain     QuestType = "main"
	QuestSide     QuestType = "side"
	QuestPersonal QuestType = "personal"
	QuestGuild    QuestType = "guild"
	QuestOther    QuestType = "other"
)

// Valid reports whether q is a known quest type.
func (q QuestType) Valid() bool {
	switch q {
	case QuestMain, QuestSide, QuestPersonal, QuestGuild, QuestOther:
		return true
	}
	return false
}

// Quest is an objective a hero is pursuing.
type Quest struct {
	ID          ID        `json:"id"`
	HeroID      ID        `json:"heroId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        QuestType `json:"type"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuestInput carries the client-writable fields of a new quest.
// Completed defaults to false when omitted.
type QuestInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        QuestType `json:"type"`
	Completed   bool      `json:"completed"`
}

// Normalize trims text fields and applies defaults.
func (in *QuestInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Type == "" {
		in.Type = QuestSide
	}
}

// Validate reports every invalid field at once.
func (in QuestInput) Validate() error {
	var v apperr.ValidationError
	if in.Title == "" {
		v.Add("title", "is required")
	}
	if !in.Type.Valid() {
		v.Add("type", "must be one of main, side, personal, guild, other")
	}
	return v.Err()
}

// QuestPatch is a partial update.
type QuestPatch struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *QuestType `json:"type"`
	Completed   *bool      `json:"completed"`
}

// Validate checks the fields that are present.
func (p QuestPatch) Validate() error {
	var v apperr.ValidationError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		v.Add("title", "must not be empty")
	}
	if p.Type != nil && !p.Type.Valid() {
		v.Add("type", "must be one of main, side, personal, guild, other")
	}
	return v.Err()
}

// Apply merges the patch onto q.
func (p QuestPatch) Apply(q *Quest) {
	if p.Title != nil {
		q.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Type != nil {
		q.Type = *p.Type
	}
	if p.Completed != nil {
		q.Completed = *p.Completed
	}
}
