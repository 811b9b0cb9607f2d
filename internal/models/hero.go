package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

// Hero is a player character owned by exactly one user.
type Hero struct {
	ID           ID        `json:"id"`
	UserID       ID        `json:"userId"`
	Name         string    `json:"name"`
	System       string    `json:"system"`
	Race         string    `json:"race"`
	Class        string    `json:"class"`
	Level        int       `json:"level"`
	Age          *int      `json:"age,omitempty"`
	Deceased     bool      `json:"deceased"`
	Portrait     string    `json:"portrait,omitempty"`
	Backstory    string    `json:"backstory,omitempty"`
	BackstoryPDF string    `json:"backstoryPdf,omitempty"`
	Tags         Tags      `json:"tags"`
	Stats        Stats     `json:"stats"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HeroInput carries the client-writable fields of a new hero.
type HeroInput struct {
	Name      string `json:"name"`
	System    string `json:"system"`
	Race      string `json:"race"`
	Class     string `json:"class"`
	Level     int    `json:"level"`
	Age       *int   `json:"age"`
	Deceased  bool   `json:"deceased"`
	Portrait  string `json:"portrait"`
	Backstory string `json:"backstory"`
	Tags      Tags   `json:"tags"`
	Stats     Stats  `json:"stats"`
}

// Normalize trims text fields and applies defaults.
func (in *HeroInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.System = strings.TrimSpace(in.System)
	in.Race = strings.TrimSpace(in.Race)
	in.Class = strings.TrimSpace(in.Class)
	if in.Level == 0 {
		in.Level = 1
	}
	in.Tags = in.Tags.Normalize()
	if in.Stats == nil {
		in.Stats = Stats{}
	}
}

// Validate reports every invalid field at once.
func (in HeroInput) Validate() error {
	var v apperr.ValidationError
	if in.Name == "" {
		v.Add("name", "is required")
	} else if len(in.Name) > 100 {
		v.Add("name", "must not exceed 100 characters")
	}
	if in.System == "" {
		v.Add("system", "is required")
	}
	if in.Level < 1 {
		v.Add("level", "must be a positive integer")
	}
	if in.Age != nil && *in.Age < 0 {
		v.Add("age", "must not be negative")
	}
	return v.Err()
}

// HeroPatch is a partial update. Nil fields are left untouched. An Age of 0
// clears the stored age.
type HeroPatch struct {
	Name      *string `json:"name"`
	System    *string `json:"system"`
	Race      *string `json:"race"`
	Class     *string `json:"class"`
	Level     *int    `json:"level"`
	Age       *int    `json:"age"`
	Deceased  *bool   `json:"deceased"`
	Portrait  *string `json:"portrait"`
	Backstory *string `json:"backstory"`
	Tags      *Tags   `json:"tags"`
	Stats     *Stats  `json:"stats"`
}

// Validate checks the fields that are present.
func (p HeroPatch) Validate() error {
	var v apperr.ValidationError
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		v.Add("name", "must not be empty")
	}
	if p.System != nil && strings.TrimSpace(*p.System) == "" {
		v.Add("system", "must not be empty")
	}
	if p.Level != nil && *p.Level < 1 {
		v.Add("level", "must be a positive integer")
	}
	if p.Age != nil && *p.Age < 0 {
		v.Add("age", "must not be negative")
	}
	return v.Err()
}

// Apply merges the patch onto h. It never touches ID, UserID or timestamps.
func (p HeroPatch) Apply(h *Hero) {
	if p.Name != nil {
		h.Name = strings.TrimSpace(*p.Name)
	}
	if p.System != nil {
		h.System = strings.TrimSpace(*p.System)
	}
	if p.Race != nil {
		h.Race = strings.TrimSpace(*p.Race)
	}
	if p.Class != nil {
		h.Class = strings.TrimSpace(*p.Class)
	}
	if p.Level != nil {
		h.Level = *p.Level
	}
	if p.Age != nil {
		if *p.Age == 0 {
			h.Age = nil
		} else {
			age := *p.Age
			h.Age = &age
		}
	}
	if p.Deceased != nil {
		h.Deceased = *p.Deceased
	}
	if p.Portrait != nil {
		h.Portrait = *p.Portrait
	}
	if p.Backstory != nil {
		h.Backstory = *p.Backstory
	}
	if p.Tags != nil {
		h.Tags = p.Tags.Normalize()
	}
	if p.Stats != nil {
		h.Stats = *p.Stats
	}
}

// Tags is a set of free-text labels, stored as a JSON array column.
type Tags []string

// Normalize trims tags, drops empty ones and removes duplicates while
// keeping first-seen order. It never returns nil.
func (t Tags) Normalize() Tags {
	out := make(Tags, 0, len(t))
	seen := make(map[string]struct{}, len(t))
	for _, tag := range t {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	data, err := jsonColumn(src)
	if err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

// StatValue is a single statistic: a number or a short piece of text.
type StatValue struct {
	Number float64
	Text   string
	IsText bool
}

// NumberStat builds a numeric statistic.
func NumberStat(n float64) StatValue { return StatValue{Number: n} }

// TextStat builds a textual statistic.
func TextStat(s string) StatValue { return StatValue{Text: s, IsText: true} }

// MarshalJSON implements json.Marshaler.
func (v StatValue) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Number)
}

// UnmarshalJSON accepts a JSON number or string and rejects anything else.
func (v *StatValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextStat(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("stat value must be a number or a string, got %s", data)
	}
	*v = NumberStat(n)
	return nil
}

// Stats maps attribute keys to values. Its shape depends on the hero's game
// system and is not enforced by the server.
type Stats map[string]StatValue

// Value implements driver.Valuer.
func (s Stats) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]StatValue(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Stats) Scan(src any) error {
	data, err := jsonColumn(src)
	if err != nil {
		return fmt.Errorf("scan stats: %w", err)
	}
	out := map[string]StatValue{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan stats: %w", err)
	}
	if out == nil {
		out = map[string]StatValue{}
	}
	*s = out
	return nil
}

func jsonColumn(src any) ([]byte, error) {
	switch v := src.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
