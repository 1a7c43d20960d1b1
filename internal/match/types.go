// Package match implements name normalization and the fuzzy matching
// cascade used to resolve free-text names against canonical records.
package match

// Entity is a canonical record (company, product, project) loaded from the
// system of record. The matcher never mutates entities; callers own them.
type Entity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Strategy identifies which stage of a matching cascade produced a result.
type Strategy string

const (
	StrategyExact        Strategy = "exact"
	StrategySubstring    Strategy = "substring"
	StrategyAbbreviation Strategy = "abbreviation"
	StrategyTokenOverlap Strategy = "token_overlap"
	StrategyEditDistance Strategy = "edit_distance"
	StrategyNone         Strategy = "none"
)

// Result is the outcome of a single resolution call. Score is always in
// [0,1]; a Strategy of "none" carries a nil Entity and a zero Score.
type Result struct {
	Entity   *Entity  `json:"matchedEntity"`
	Strategy Strategy `json:"strategy"`
	Score    float64  `json:"score"`
}

// NoMatch is the well-defined empty outcome.
func NoMatch() Result {
	return Result{Strategy: StrategyNone}
}
