package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxCompanies = "opsboard_companies"
	idxProducts  = "opsboard_products"
	idxProjects  = "opsboard_projects"
)

// Meili backs entity search with Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the entity indexes.
// An unreachable server leaves the client unhealthy; the background loop
// reconfigures indexes when it recovers.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	for _, uid := range []string{idxCompanies, idxProducts, idxProjects} {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: uid, PrimaryKey: "id"}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", uid, err)
		}
		searchable := []string{"name", "email"}
		if _, err := m.client.Index(uid).UpdateSearchableAttributes(&searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries all three entity indexes (or a filtered subset) and merges
// results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	targets := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxCompanies, ResultCompany},
		{idxProducts, ResultProduct},
		{idxProjects, ResultProject},
	}

	var queries []*meili.SearchRequest
	for _, ti := range targets {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID: ti.uid,
			Query:    q.Text,
			Limit:    limit,
			Offset:   int64(q.Offset),
		})
	}
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: queries})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}
	return results, total, nil
}

// IndexEntities pushes a batch of entities into one index.
func (m *Meili) IndexEntities(rtyp ResultType, records []EntityRecord) error {
	if len(records) == 0 {
		return nil
	}
	uid := resultTypeToIndex(rtyp)
	if uid == "" {
		return fmt.Errorf("unknown entity type %q", rtyp)
	}
	if _, err := m.client.Index(uid).AddDocuments(records, nil); err != nil {
		return fmt.Errorf("index %s entities: %w", rtyp, err)
	}
	return nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxCompanies:
		return ResultCompany
	case idxProducts:
		return ResultProduct
	case idxProjects:
		return ResultProject
	default:
		return ""
	}
}

func resultTypeToIndex(rtyp ResultType) string {
	switch rtyp {
	case ResultCompany:
		return idxCompanies
	case ResultProduct:
		return idxProducts
	case ResultProject:
		return idxProjects
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	if raw, ok := hit["id"]; ok {
		var id int64
		if err := json.Unmarshal(raw, &id); err == nil {
			r.ID = id
		}
	}
	if raw, ok := hit["name"]; ok {
		_ = json.Unmarshal(raw, &r.Name)
	}
	if raw, ok := hit["email"]; ok {
		_ = json.Unmarshal(raw, &r.Email)
	}
	return r
}
