// Package catalog resolves free-text product and service names against the
// canonical product catalog.
package catalog

import (
	"errors"
	"strings"

	"opsboard/api/internal/match"
)

// ErrEmptyName distinguishes an invalid request from a no-match outcome.
var ErrEmptyName = errors.New("product name is required")

// acceptThreshold is the minimum token-overlap score for a fuzzy hit. The
// value balances recall against false positives for short product names and
// is deliberately not configurable per call.
const acceptThreshold = 0.6

// Resolve matches a query against the catalog with a three-stage cascade:
// case-insensitive exact equality, case-insensitive substring, then
// token-overlap scoring. Each stage short-circuits on success. A query that
// clears no stage yields a "none" result, not an error.
func Resolve(name string, candidates []match.Entity) (match.Result, error) {
	query := strings.TrimSpace(name)
	if query == "" {
		return match.NoMatch(), ErrEmptyName
	}

	for i := range candidates {
		if strings.EqualFold(strings.TrimSpace(candidates[i].Name), query) {
			return match.Result{Entity: &candidates[i], Strategy: match.StrategyExact, Score: 1.0}, nil
		}
	}

	lower := strings.ToLower(query)
	var hits []*match.Entity
	for i := range candidates {
		if strings.Contains(strings.ToLower(candidates[i].Name), lower) {
			hits = append(hits, &candidates[i])
		}
	}
	if len(hits) == 1 {
		return match.Result{Entity: hits[0], Strategy: match.StrategySubstring, Score: overlapScore(query, hits[0].Name)}, nil
	}

	// Ambiguous substring hits are disambiguated by scoring; with no
	// substring hits at all the whole catalog is scored.
	pool := hits
	if len(pool) == 0 {
		pool = make([]*match.Entity, 0, len(candidates))
		for i := range candidates {
			pool = append(pool, &candidates[i])
		}
	}

	var best *match.Entity
	bestScore := 0.0
	for _, c := range pool {
		if score := overlapScore(query, c.Name); score > bestScore {
			best, bestScore = c, score
		}
	}
	if best != nil && bestScore >= acceptThreshold {
		return match.Result{Entity: best, Strategy: match.StrategyTokenOverlap, Score: bestScore}, nil
	}
	return match.NoMatch(), nil
}

// overlapScore is the fraction of the query's normalized tokens also present
// in the candidate's normalized tokens.
func overlapScore(query, candidate string) float64 {
	queryTokens := match.Tokens(query)
	candidateTokens := match.Tokens(candidate)

	seen := make(map[string]struct{}, len(candidateTokens))
	for _, tok := range candidateTokens {
		seen[tok] = struct{}{}
	}

	shared := 0
	counted := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		if _, dup := counted[tok]; dup {
			continue
		}
		counted[tok] = struct{}{}
		if _, ok := seen[tok]; ok {
			shared++
		}
	}

	denom := len(counted)
	if denom < 1 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}
