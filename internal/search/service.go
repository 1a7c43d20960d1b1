package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to the
// Postgres substring search.
type Service struct {
	meili *Meili
	db    *DBSearch
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, db *DBSearch) *Service {
	return &Service{meili: meili, db: db}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to db: %v", err)
	}

	results, total, err := s.db.Search(ctx, q)
	if err != nil {
		log.Printf("search: db fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// ReindexAllFromDB reads every entity from Postgres and pushes it to
// Meilisearch. Called during bootstrap when Meilisearch is healthy.
func (s *Service) ReindexAllFromDB(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.db == nil {
		return
	}
	records, err := s.db.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	for rtyp, batch := range records {
		if err := s.meili.IndexEntities(rtyp, batch); err != nil {
			log.Printf("search: reindex %s: %v", rtyp, err)
		}
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
