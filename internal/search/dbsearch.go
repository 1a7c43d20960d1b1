package search

import (
	"context"
	"database/sql"
	"fmt"
)

// DBSearch is the Postgres fallback: case-insensitive substring search over
// entity names. Good enough for the dashboard's directory views when
// Meilisearch is not deployed.
type DBSearch struct {
	db *sql.DB
}

func NewDBSearch(db *sql.DB) *DBSearch {
	return &DBSearch{db: db}
}

type dbTarget struct {
	rtyp  ResultType
	query string
}

var dbTargets = []dbTarget{
	{ResultCompany, `SELECT id, name, COALESCE(email, '') FROM companies WHERE name ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3`},
	{ResultProduct, `SELECT id, name, '' FROM products WHERE name ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3`},
	{ResultProject, `SELECT id, name, '' FROM projects WHERE name ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3`},
}

// Search runs the fallback query against each requested entity table.
func (d *DBSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}
	pattern := "%" + q.Text + "%"

	results := make([]Result, 0)
	for _, target := range dbTargets {
		if q.FilterType != "" && q.FilterType != target.rtyp {
			continue
		}
		rows, err := d.db.QueryContext(ctx, target.query, pattern, limit, q.Offset)
		if err != nil {
			return nil, 0, fmt.Errorf("db search %s: %w", target.rtyp, err)
		}
		for rows.Next() {
			r := Result{Type: target.rtyp}
			if err := rows.Scan(&r.ID, &r.Name, &r.Email); err != nil {
				rows.Close()
				return nil, 0, fmt.Errorf("scan %s hit: %w", target.rtyp, err)
			}
			results = append(results, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("db search %s: %w", target.rtyp, err)
		}
		rows.Close()
	}
	return results, len(results), nil
}

// LoadAllRecords reads every entity for a full reindex into Meilisearch.
func (d *DBSearch) LoadAllRecords(ctx context.Context) (map[ResultType][]EntityRecord, error) {
	out := make(map[ResultType][]EntityRecord)
	queries := map[ResultType]string{
		ResultCompany: `SELECT id, name, COALESCE(email, '') FROM companies ORDER BY id`,
		ResultProduct: `SELECT id, name, '' FROM products ORDER BY id`,
		ResultProject: `SELECT id, name, '' FROM projects ORDER BY id`,
	}
	for rtyp, query := range queries {
		rows, err := d.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("load %s records: %w", rtyp, err)
		}
		for rows.Next() {
			var r EntityRecord
			if err := rows.Scan(&r.ID, &r.Name, &r.Email); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s record: %w", rtyp, err)
			}
			out[rtyp] = append(out[rtyp], r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load %s records: %w", rtyp, err)
		}
		rows.Close()
	}
	return out, nil
}
