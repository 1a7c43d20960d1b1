// Package projectlink matches externally-reported project names from
// automation webhooks to canonical project records and remembers the latest
// mapping in a keyed store.
package projectlink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"opsboard/api/internal/match"
)

// ErrEmptyName distinguishes an invalid sync payload from a no-match outcome.
var ErrEmptyName = errors.New("external project name is required")

// confidenceThreshold is the minimum normalized edit-distance similarity for
// an accepted link.
const confidenceThreshold = 0.6

// Record is the stored link between an external project and its best
// canonical match. Writes are last-write-wins per key.
type Record struct {
	ExternalID     string        `json:"externalId"`
	ExternalName   string        `json:"externalName"`
	EstimatedHours float64       `json:"estimatedHours"`
	TotalTasks     int           `json:"totalTasks"`
	CompletedTasks int           `json:"completedTasks"`
	Entity         *match.Entity `json:"matchedEntity"`
	Confidence     float64       `json:"confidence"`
	LastUpdated    time.Time     `json:"lastUpdated"`
}

// Stats carries the per-project figures delivered by a sync event.
type Stats struct {
	EstimatedHours float64
	TotalTasks     int
	CompletedTasks int
}

// Store persists link records keyed by canonical project id (or an
// "unmatched" sentinel). Implementations must be safe for concurrent use:
// webhook deliveries race on the same canonical id.
type Store interface {
	Put(ctx context.Context, key string, record Record) error
	Get(ctx context.Context, key string) (Record, bool, error)
	List(ctx context.Context) (map[string]Record, error)
}

// Similarity is normalized edit-distance similarity over lower-cased,
// trimmed inputs: (maxLen - levenshtein) / maxLen, with 1.0 for two empty
// strings. Symmetric; always in [0,1].
func Similarity(x, y string) float64 {
	a := strings.ToLower(strings.TrimSpace(x))
	b := strings.ToLower(strings.TrimSpace(y))

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen)
}

// Linker resolves external project names and upserts the resulting link
// records.
type Linker struct {
	store Store
	now   func() time.Time
}

// NewLinker creates a Linker backed by the given store.
func NewLinker(store Store) *Linker {
	return &Linker{store: store, now: time.Now}
}

// Link finds the candidate with the highest similarity to the external name.
// An accepted match (similarity >= 0.6) is stored under the canonical id;
// a rejected one under "unmatched:<externalId>" so repeated rejections for
// the same external project overwrite rather than accumulate.
func (l *Linker) Link(ctx context.Context, externalID, externalName string, stats Stats, candidates []match.Entity) (match.Result, error) {
	if strings.TrimSpace(externalName) == "" {
		return match.NoMatch(), ErrEmptyName
	}

	var best *match.Entity
	bestScore := 0.0
	for i := range candidates {
		if score := Similarity(externalName, candidates[i].Name); score > bestScore {
			best, bestScore = &candidates[i], score
		}
	}

	record := Record{
		ExternalID:     externalID,
		ExternalName:   externalName,
		EstimatedHours: stats.EstimatedHours,
		TotalTasks:     stats.TotalTasks,
		CompletedTasks: stats.CompletedTasks,
		LastUpdated:    l.now(),
	}

	if best == nil || bestScore < confidenceThreshold {
		if err := l.store.Put(ctx, UnmatchedKey(externalID), record); err != nil {
			return match.NoMatch(), fmt.Errorf("store unmatched link: %w", err)
		}
		return match.NoMatch(), nil
	}

	record.Entity = best
	record.Confidence = bestScore
	if err := l.store.Put(ctx, ProjectKey(best.ID), record); err != nil {
		return match.NoMatch(), fmt.Errorf("store project link: %w", err)
	}
	return match.Result{Entity: best, Strategy: match.StrategyEditDistance, Score: bestScore}, nil
}

// Records returns every stored link keyed by store key.
func (l *Linker) Records(ctx context.Context) (map[string]Record, error) {
	return l.store.List(ctx)
}

// ProjectKey is the store key for an accepted link.
func ProjectKey(canonicalID int64) string {
	return fmt.Sprintf("project:%d", canonicalID)
}

// UnmatchedKey is the store key for a rejected link.
func UnmatchedKey(externalID string) string {
	return "unmatched:" + externalID
}
