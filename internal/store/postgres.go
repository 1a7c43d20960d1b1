package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, '')
		FROM companies
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	items := make([]Company, 0)
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetProject(ctx context.Context, id int64) (Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM projects WHERE id=$1`, id).Scan(&p.ID, &p.Name)
	if err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *PostgresStore) ListRegistryTasks(ctx context.Context) ([]RegistryTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, hours, COALESCE(tags, ''), synced_at
		FROM registry_tasks
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list registry tasks: %w", err)
	}
	defer rows.Close()

	items := make([]RegistryTask, 0)
	for rows.Next() {
		var t RegistryTask
		var tags string
		if err := rows.Scan(&t.ID, &t.Name, &t.Hours, &tags, &t.SyncedAt); err != nil {
			return nil, fmt.Errorf("scan registry task: %w", err)
		}
		t.Tags = splitTags(tags)
		items = append(items, t)
	}
	return items, rows.Err()
}

// ReplaceRegistryTasks swaps the full registry in one transaction. The
// spreadsheet is the source of truth, so a sync is always a full replace.
func (s *PostgresStore) ReplaceRegistryTasks(ctx context.Context, tasks []RegistryTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM registry_tasks`); err != nil {
		return fmt.Errorf("clear registry tasks: %w", err)
	}
	for _, t := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO registry_tasks (id, name, hours, tags, synced_at)
			VALUES ($1, $2, $3, $4, NOW())
		`, t.ID, t.Name, t.Hours, strings.Join(t.Tags, ",")); err != nil {
			return fmt.Errorf("insert registry task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) InsertReportEntries(ctx context.Context, sourceName string, entries []ReportEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report insert: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO report_entries (source_name, task_ref, hours, reported_at)
			VALUES ($1, $2, $3, NOW())
		`, sourceName, e.TaskRef, e.Hours); err != nil {
			return fmt.Errorf("insert report entry: %w", err)
		}
	}
	return tx.Commit()
}

// ListReportEntries returns all raw entries grouped by source name.
func (s *PostgresStore) ListReportEntries(ctx context.Context) (map[string][]ReportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_name, task_ref, hours, reported_at
		FROM report_entries
		ORDER BY source_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list report entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]ReportEntry)
	for rows.Next() {
		var e ReportEntry
		if err := rows.Scan(&e.ID, &e.SourceName, &e.TaskRef, &e.Hours, &e.ReportedAt); err != nil {
			return nil, fmt.Errorf("scan report entry: %w", err)
		}
		out[e.SourceName] = append(out[e.SourceName], e)
	}
	return out, rows.Err()
}

// SummaryCounts backs the dashboard landing page.
func (s *PostgresStore) SummaryCounts(ctx context.Context) (companies, products, projects, tasks int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM companies),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM registry_tasks)
	`).Scan(&companies, &products, &projects, &tasks)
	if err != nil {
		err = fmt.Errorf("summary counts: %w", err)
	}
	return
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
