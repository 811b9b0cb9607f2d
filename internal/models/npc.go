package models

import (
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

// Relationship classifies how an NPC relates to the hero.
type Relationship string

const (
	RelationshipAlly    Relationship = "ally"
	RelationshipEnemy   Relationship = "enemy"
	RelationshipNeutral Relationship = "neutral"
	RelationshipFamily  Relationship = "family"
	RelationshipMentor  Relationship = "mentor"
	RelationshipStudent Relationship = "student"
	RelationshipRival   Relationship = "rival"
	RelationshipRomance Relationship = "romance"
	RelationshipOther   Relationship = "other"
)

// Valid reports whether r is one of the known relationship categories.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipAlly, RelationshipEnemy, RelationshipNeutral, RelationshipFamily,
		RelationshipMentor, RelationshipStudent, RelationshipRival, RelationshipRomance,
		RelationshipOther:
		return true
	}
	return false
}

// Npc is a non-player character known to a hero.
type Npc struct {
	ID             ID           `json:"id"`
	HeroID         ID           `json:"heroId"`
	Name           string       `json:"name"`
	Image          string       `json:"image,omitempty"`
	Relationship   Relationship `json:"relationship"`
	Location       string       `json:"location,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	Favorite       bool         `json:"favorite"`
	FirstSessionID *ID          `json:"firstSessionId"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// NpcInput carries the client-writable fields of a new NPC.
type NpcInput struct {
	Name           string       `json:"name"`
	Image          string       `json:"image"`
	Relationship   Relationship `json:"relationship"`
	Location       string       `json:"location"`
	Notes          string       `json:"notes"`
	Favorite       bool         `json:"favorite"`
	FirstSessionID *ID          `json:"firstSessionId"`
}

// Normalize trims text fields and applies defaults.
func (in *NpcInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if in.Relationship == "" {
		in.Relationship = RelationshipNeutral
	}
	if in.FirstSessionID != nil && *in.FirstSessionID == 0 {
		in.FirstSessionID = nil
	}
}

// Validate reports every invalid field at once.
func (in NpcInput) Validate() error {
	var v apperr.ValidationError
	if in.Name == "" {
		v.Add("name", "is required")
	}
	if !in.Relationship.Valid() {
		v.Add("relationship", "must be one of ally, enemy, neutral, family, mentor, student, rival, romance, other")
	}
	if in.FirstSessionID != nil && *in.FirstSessionID < 0 {
		v.Add("firstSessionId", "must be a positive integer")
	}
	return v.Err()
}

// NpcPatch is a partial update. A firstSessionId of null or 0 clears the
// reference; leaving the key out keeps it.
type NpcPatch struct {
	Name           *string       `json:"name"`
	Image          *string       `json:"image"`
	Relationship   *Relationship `json:"relationship"`
	Location       *string       `json:"location"`
	Notes          *string       `json:"notes"`
	Favorite       *bool         `json:"favorite"`
	FirstSessionID OptionalID    `json:"firstSessionId"`
}

// Validate checks the fields that are present.
func (p NpcPatch) Validate() error {
	var v apperr.ValidationError
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		v.Add("name", "must not be empty")
	}
	if p.Relationship != nil && !p.Relationship.Valid() {
		v.Add("relationship", "must be one of ally, enemy, neutral, family, mentor, student, rival, romance, other")
	}
	if p.FirstSessionID.Set && p.FirstSessionID.Value < 0 {
		v.Add("firstSessionId", "must be a positive integer")
	}
	return v.Err()
}

// Apply merges the patch onto n.
func (p NpcPatch) Apply(n *Npc) {
	if p.Name != nil {
		n.Name = strings.TrimSpace(*p.Name)
	}
	if p.Image != nil {
		n.Image = *p.Image
	}
	if p.Relationship != nil {
		n.Relationship = *p.Relationship
	}
	if p.Location != nil {
		n.Location = strings.TrimSpace(*p.Location)
	}
	if p.Notes != nil {
		n.Notes = *p.Notes
	}
	if p.Favorite != nil {
		n.Favorite = *p.Favorite
	}
	if p.FirstSessionID.Set {
		if p.FirstSessionID.Value == 0 {
			n.FirstSessionID = nil
		} else {
			id := p.FirstSessionID.Value
			n.FirstSessionID = &id
		}
	}
}
