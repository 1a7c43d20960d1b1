// Package reconcile computes whether independently reported hour totals for
// the same logical task agree with the canonical task registry.
package reconcile

import (
	"math"
	"sort"

	"opsboard/api/internal/match"
)

// Default platform sources. A configured Engine may override these; sources
// present in a report but not listed here are still summarized.
var DefaultSources = []string{"project-tracker", "ticketing", "time-tracker"}

// RegistryTask is a canonical task from the spreadsheet registry.
type RegistryTask struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Hours float64  `json:"hours"`
	Tags  []string `json:"tags,omitempty"`
}

// Entry is one reported line item from a platform.
type Entry struct {
	TaskRef string  `json:"taskRef"`
	Hours   float64 `json:"hours"`
}

// PlatformReport is the hour report from one external platform.
type PlatformReport struct {
	SourceName string  `json:"sourceName"`
	Entries    []Entry `json:"entries"`
}

// SourceSummary aggregates one source's contribution.
type SourceSummary struct {
	TotalHours         float64 `json:"totalHours"`
	MatchedTaskCount   int     `json:"matchedTaskCount"`
	UnmatchedTaskCount int     `json:"unmatchedTaskCount"`
}

// Discrepancy flags a registry task whose reported hours differ from the
// expectation in at least one source, or which a source failed to report.
type Discrepancy struct {
	TaskID                string             `json:"taskId"`
	TaskName              string             `json:"taskName"`
	ExpectedHours         float64            `json:"expectedHours"`
	ReportedHoursBySource map[string]float64 `json:"reportedHoursBySource"`
	MissingSources        []string           `json:"missingSources,omitempty"`
	Delta                 float64            `json:"delta"`
}

// Result is the full reconciliation outcome, computed fresh per call and
// never persisted by this package.
type Result struct {
	PerSource     map[string]SourceSummary `json:"perSource"`
	Discrepancies []Discrepancy            `json:"discrepancies"`
}

// Engine reconciles registry tasks against platform reports. Task identity
// is matched by exact key equality: callers must pre-align report task refs
// to registry ids (see AlignEntries) before calling Reconcile.
type Engine struct {
	sources []string
}

// NewEngine creates an Engine expecting the given sources; nil selects
// DefaultSources. Expected sources that deliver no report contribute zero
// totals with every task unmatched, which is a normal outcome while a
// platform integration is unimplemented.
func NewEngine(sources []string) *Engine {
	if sources == nil {
		sources = DefaultSources
	}
	return &Engine{sources: sources}
}

// Reconcile produces per-source totals and the discrepancy list. The
// discrepancy set is independent of the order of sources; per-source totals
// are keyed by source identity.
func (e *Engine) Reconcile(registry []RegistryTask, sources []PlatformReport) Result {
	expected := make(map[string]RegistryTask, len(registry))
	for _, task := range registry {
		expected[task.ID] = task
	}

	// Union of expected sources and whatever actually reported.
	reported := make(map[string]map[string]float64, len(e.sources))
	names := make([]string, 0, len(e.sources)+len(sources))
	for _, name := range e.sources {
		if _, ok := reported[name]; !ok {
			reported[name] = nil
			names = append(names, name)
		}
	}
	for _, report := range sources {
		if _, ok := reported[report.SourceName]; !ok {
			reported[report.SourceName] = nil
			names = append(names, report.SourceName)
		}
	}

	perSource := make(map[string]SourceSummary, len(names))
	for _, report := range sources {
		sums := reported[report.SourceName]
		if sums == nil {
			sums = make(map[string]float64)
			reported[report.SourceName] = sums
		}
		summary := perSource[report.SourceName]
		for _, entry := range report.Entries {
			sums[entry.TaskRef] += entry.Hours
			summary.TotalHours += entry.Hours
		}
		perSource[report.SourceName] = summary
	}

	for _, name := range names {
		summary := perSource[name]
		sums := reported[name]
		matched := 0
		for _, task := range registry {
			if _, ok := sums[task.ID]; ok {
				matched++
			}
		}
		summary.MatchedTaskCount = matched
		summary.UnmatchedTaskCount = len(registry) - matched
		perSource[name] = summary
	}

	sort.Strings(names)

	discrepancies := make([]Discrepancy, 0)
	for _, task := range registry {
		d := Discrepancy{
			TaskID:                task.ID,
			TaskName:              task.Name,
			ExpectedHours:         task.Hours,
			ReportedHoursBySource: make(map[string]float64),
		}
		flagged := false
		for _, name := range names {
			sums := reported[name]
			hours, ok := sums[task.ID]
			if !ok {
				d.MissingSources = append(d.MissingSources, name)
				flagged = true
				continue
			}
			d.ReportedHoursBySource[name] = hours
			delta := hours - task.Hours
			if delta != 0 {
				flagged = true
			}
			if math.Abs(delta) > math.Abs(d.Delta) ||
				(math.Abs(delta) == math.Abs(d.Delta) && delta > d.Delta) {
				d.Delta = delta
			}
		}
		if flagged {
			discrepancies = append(discrepancies, d)
		}
	}

	return Result{PerSource: perSource, Discrepancies: discrepancies}
}

// AlignEntries maps free-text task refs to registry ids ahead of
// reconciliation, satisfying the engine's exact-key precondition when an
// upstream feed drifts on naming. Exact id matches pass through; otherwise
// the name-matching cascade runs against registry task names, first match
// wins. Entries that align to nothing are returned unchanged so they still
// surface in source totals.
func AlignEntries(matcher *match.Matcher, registry []RegistryTask, entries []Entry) []Entry {
	byID := make(map[string]struct{}, len(registry))
	for _, task := range registry {
		byID[task.ID] = struct{}{}
	}

	aligned := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := byID[entry.TaskRef]; ok {
			aligned = append(aligned, entry)
			continue
		}
		ref := entry.TaskRef
		for _, task := range registry {
			if matcher.NamesMatch(entry.TaskRef, task.Name) {
				ref = task.ID
				break
			}
		}
		aligned = append(aligned, Entry{TaskRef: ref, Hours: entry.Hours})
	}
	return aligned
}
