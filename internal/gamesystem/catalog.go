// Package gamesystem describes the tabletop game systems a hero can belong
// to and the statistics each one tracks.
package gamesystem

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/atinyakov/HeroKeeper/internal/models"
)

//go:embed systems.yaml
var builtin []byte

// Attribute is one statistic tracked by a game system.
type Attribute struct {
	Key     string  `yaml:"key" json:"key"`
	Label   string  `yaml:"label" json:"label"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Default float64 `yaml:"default" json:"default"`
}

// System is a game system and its ordered attributes.
type System struct {
	ID         string      `yaml:"id" json:"id"`
	Name       string      `yaml:"name" json:"name"`
	Attributes []Attribute `yaml:"attributes" json:"attributes"`
}

// Catalog is an immutable set of game systems.
type Catalog struct {
	systems []System
	byID    map[string]System
}

// Builtin parses the catalog compiled into the binary.
func Builtin() (*Catalog, error) {
	return Parse(builtin)
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Systems []System `yaml:"systems"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse game systems: %w", err)
	}

	c := &Catalog{byID: make(map[string]System, len(doc.Systems))}
	for _, s := range doc.Systems {
		if s.ID == "" {
			return nil, fmt.Errorf("parse game systems: system %q has no id", s.Name)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("parse game systems: duplicate system %q", s.ID)
		}
		seen := make(map[string]struct{}, len(s.Attributes))
		for _, a := range s.Attributes {
			if _, dup := seen[a.Key]; dup || a.Key == "" {
				return nil, fmt.Errorf("parse game systems: %s: bad attribute key %q", s.ID, a.Key)
			}
			seen[a.Key] = struct{}{}
			if a.Min > a.Max || a.Default < a.Min || a.Default > a.Max {
				return nil, fmt.Errorf("parse game systems: %s.%s: default outside [min, max]", s.ID, a.Key)
			}
		}
		if s.Attributes == nil {
			s.Attributes = []Attribute{}
		}
		c.systems = append(c.systems, s)
		c.byID[s.ID] = s
	}
	return c, nil
}

// Systems returns all systems in declaration order.
func (c *Catalog) Systems() []System {
	out := make([]System, len(c.systems))
	copy(out, c.systems)
	return out
}

// Lookup returns the system with the given id.
func (c *Catalog) Lookup(id string) (System, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// DefaultStats returns the starting statistics for a hero of the given
// system, or nil when the system is unknown.
func (c *Catalog) DefaultStats(id string) models.Stats {
	s, ok := c.byID[id]
	if !ok {
		return nil
	}
	stats := make(models.Stats, len(s.Attributes))
	for _, a := range s.Attributes {
		stats[a.Key] = models.NumberStat(a.Default)
	}
	return stats
}
