package models

import (
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

// SessionLog holds the narrative notes of one play session.
type SessionLog struct {
	ID        ID        `json:"id"`
	HeroID    ID        `json:"heroId"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	Tags      Tags      `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionLogInput carries the client-writable fields of a new session log.
type SessionLogInput struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Tags    Tags   `json:"tags"`
}

// Normalize trims text fields and canonicalizes the date to YYYY-MM-DD when
// it parses.
func (in *SessionLogInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if d, ok := NormalizeDate(in.Date); ok {
		in.Date = d
	}
	in.Tags = in.Tags.Normalize()
}

// Validate reports every invalid field at once.
func (in SessionLogInput) Validate() error {
	var v apperr.ValidationError
	if in.Title == "" {
		v.Add("title", "is required")
	}
	if _, ok := NormalizeDate(in.Date); !ok {
		v.Add("date", "must be a date (YYYY-MM-DD or RFC 3339)")
	}
	return v.Err()
}

// SessionLogPatch is a partial update.
type SessionLogPatch struct {
	Title   *string `json:"title"`
	Date    *string `json:"date"`
	Content *string `json:"content"`
	Tags    *Tags   `json:"tags"`
}

// Validate checks the fields that are present.
func (p SessionLogPatch) Validate() error {
	var v apperr.ValidationError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		v.Add("title", "must not be empty")
	}
	if p.Date != nil {
		if _, ok := NormalizeDate(*p.Date); !ok {
			v.Add("date", "must be a date (YYYY-MM-DD or RFC 3339)")
		}
	}
	return v.Err()
}

// Apply merges the patch onto s.
func (p SessionLogPatch) Apply(s *SessionLog) {
	if p.Title != nil {
		s.Title = strings.TrimSpace(*p.Title)
	}
	if p.Date != nil {
		if d, ok := NormalizeDate(*p.Date); ok {
			s.Date = d
		}
	}
	if p.Content != nil {
		s.Content = *p.Content
	}
	if p.Tags != nil {
		s.Tags = p.Tags.Normalize()
	}
}

// NormalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date in YYYY-MM-DD form, which also sorts chronologically as text.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly), true
	}
	return "", false
}
