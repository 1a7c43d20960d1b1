// Package search provides entity search across companies, products, and
// projects: Meilisearch when available, a Postgres fallback otherwise.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultCompany ResultType = "company"
	ResultProduct ResultType = "product"
	ResultProject ResultType = "project"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type  ResultType `json:"type"`
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// EntityRecord is the data pushed into a search index.
type EntityRecord struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
