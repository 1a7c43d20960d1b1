package match

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SynonymGroup describes a domain-specific equivalence: two names are
// considered the same concept when both contain the anchor token and each
// contains at least one member of the synonym set.
type SynonymGroup struct {
	Anchor   string   `yaml:"anchor" json:"anchor"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
}

// DefaultSynonymGroups returns the built-in table. These two groups cover
// naming drift observed in production data: a medical-center variant group
// and a named-battalion variant group.
func DefaultSynonymGroups() []SynonymGroup {
	return []SynonymGroup{
		{Anchor: "makati", Synonyms: []string{"medical", "med"}},
		{Anchor: "cyber", Synonyms: []string{"battalion", "batt"}},
	}
}

type synonymFile struct {
	Groups []SynonymGroup `yaml:"groups"`
}

// LoadSynonymGroups reads a synonym-group table from a YAML file so new
// domain synonyms can be added without touching matching logic. An empty
// path returns the default table.
func LoadSynonymGroups(path string) ([]SynonymGroup, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSynonymGroups(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonym groups: %w", err)
	}
	var file synonymFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse synonym groups: %w", err)
	}
	groups := make([]SynonymGroup, 0, len(file.Groups))
	for _, g := range file.Groups {
		anchor := Normalize(g.Anchor)
		if anchor == "" || len(g.Synonyms) == 0 {
			continue
		}
		normalized := SynonymGroup{Anchor: anchor}
		for _, syn := range g.Synonyms {
			if s := Normalize(syn); s != "" {
				normalized.Synonyms = append(normalized.Synonyms, s)
			}
		}
		if len(normalized.Synonyms) > 0 {
			groups = append(groups, normalized)
		}
	}
	return groups, nil
}

// matches reports whether both normalized names satisfy the group rule.
func (g SynonymGroup) matches(na, nb string) bool {
	if !strings.Contains(na, g.Anchor) || !strings.Contains(nb, g.Anchor) {
		return false
	}
	return containsAny(na, g.Synonyms) && containsAny(nb, g.Synonyms)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
