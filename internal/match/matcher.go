package match

import "strings"

// Matcher decides whether two free-text names refer to the same entity.
// The zero value uses the default synonym table.
type Matcher struct {
	groups []SynonymGroup
}

// New creates a Matcher. A nil group table selects the defaults.
func New(groups []SynonymGroup) *Matcher {
	if groups == nil {
		groups = DefaultSynonymGroups()
	}
	return &Matcher{groups: groups}
}

// NamesMatch evaluates the matching cascade in fixed order, short-circuiting
// on the first success. The order encodes strictness: cheap high-precision
// checks first, looser heuristics only when those fail.
//
//  1. exact equality of normalized forms
//  2. bidirectional containment
//  3. abbreviation equality, or one form containing the other's abbreviation
//  4. first-token equality
//  5. first-two-token equality
//  6. synonym-group rules
//
// Returns false when either name normalizes to the empty string.
func (m *Matcher) NamesMatch(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return false
	}

	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	aa := Abbreviation(a)
	ab := Abbreviation(b)
	if aa == ab || strings.Contains(na, ab) || strings.Contains(nb, aa) {
		return true
	}

	if FirstWords(a, 1) == FirstWords(b, 1) {
		return true
	}
	if FirstWords(a, 2) == FirstWords(b, 2) {
		return true
	}

	for _, g := range m.groups {
		if g.matches(na, nb) {
			return true
		}
	}
	return false
}

// FindMatchingCompany resolves a name against candidates, preferring an
// exact normalized match, then the first candidate the cascade accepts.
// Candidates are tested in input order: first match wins, not best match.
func (m *Matcher) FindMatchingCompany(name string, candidates []Entity) *Entity {
	n := Normalize(name)
	if n == "" {
		return nil
	}
	for i := range candidates {
		if Normalize(candidates[i].Name) == n {
			return &candidates[i]
		}
	}
	for i := range candidates {
		if m.NamesMatch(name, candidates[i].Name) {
			return &candidates[i]
		}
	}
	return nil
}

// FindMatchingCompanies returns every candidate the cascade accepts, in
// input order.
func (m *Matcher) FindMatchingCompanies(name string, candidates []Entity) []Entity {
	matched := make([]Entity, 0)
	for _, c := range candidates {
		if m.NamesMatch(name, c.Name) {
			matched = append(matched, c)
		}
	}
	return matched
}
