package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"opsboard/api/internal/audit"
	"opsboard/api/internal/catalog"
	"opsboard/api/internal/config"
	"opsboard/api/internal/export"
	"opsboard/api/internal/match"
	"opsboard/api/internal/notify"
	"opsboard/api/internal/projectlink"
	"opsboard/api/internal/reconcile"
	"opsboard/api/internal/search"
	"opsboard/api/internal/store"
)

type dataStore interface {
	Ping(context.Context) error
	ListCompanies(context.Context) ([]store.Company, error)
	ListProducts(context.Context) ([]store.Product, error)
	ListProjects(context.Context) ([]store.Project, error)
	GetProject(context.Context, int64) (store.Project, error)
	ListRegistryTasks(context.Context) ([]store.RegistryTask, error)
	ReplaceRegistryTasks(context.Context, []store.RegistryTask) error
	InsertReportEntries(context.Context, string, []store.ReportEntry) error
	ListReportEntries(context.Context) (map[string][]store.ReportEntry, error)
	SummaryCounts(context.Context) (companies, products, projects, tasks int, err error)
}

type registrySource interface {
	Load(context.Context) ([]store.RegistryTask, error)
}

// ProjectSyncInput is the webhook payload delivered by the external project
// tracker on every sync event.
type ProjectSyncInput struct {
	ExternalID     string  `json:"externalId"`
	Name           string  `json:"name"`
	EstimatedHours float64 `json:"estimatedHours"`
	TotalTasks     int     `json:"totalTasks"`
	CompletedTasks int     `json:"completedTasks"`
}

// SyncSummary reports the outcome of a registry sync.
type SyncSummary struct {
	TaskCount int       `json:"taskCount"`
	SyncedAt  time.Time `json:"syncedAt"`
}

// ReportEntryInput is one reported line item in an ingestion payload.
type ReportEntryInput struct {
	TaskRef string  `json:"taskRef"`
	Hours   float64 `json:"hours"`
}

// ReportIngestInput is the webhook payload carrying one platform's hour
// report lines.
type ReportIngestInput struct {
	SourceName string             `json:"sourceName"`
	Entries    []ReportEntryInput `json:"entries"`
}

// Summary is the dashboard landing-page counts.
type Summary struct {
	Companies     int `json:"companies"`
	Products      int `json:"products"`
	Projects      int `json:"projects"`
	RegistryTasks int `json:"registryTasks"`
}

// Deps bundles the collaborators the service orchestrates. Search, Notifier
// and Audit may be nil; the corresponding features degrade to no-ops.
type Deps struct {
	Store    dataStore
	Matcher  *match.Matcher
	Linker   *projectlink.Linker
	Engine   *reconcile.Engine
	Registry registrySource
	Search   *search.Service
	Notifier *notify.Notifier
	Exporter *export.Service
	Audit    *audit.Service
}

type Service struct {
	cfg      config.Config
	store    dataStore
	matcher  *match.Matcher
	linker   *projectlink.Linker
	engine   *reconcile.Engine
	registry registrySource
	search   *search.Service
	notifier *notify.Notifier
	exporter *export.Service
	audit    *audit.Service
}

func New(cfg config.Config, deps Deps) *Service {
	matcher := deps.Matcher
	if matcher == nil {
		matcher = match.New(nil)
	}
	engine := deps.Engine
	if engine == nil {
		engine = reconcile.NewEngine(nil)
	}
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		matcher:  matcher,
		linker:   deps.Linker,
		engine:   engine,
		registry: deps.Registry,
		search:   deps.Search,
		notifier: deps.Notifier,
		exporter: deps.Exporter,
		audit:    deps.Audit,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap warms up the dependencies that can be warmed: verifies the
// database and pushes current entities into the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if s.search != nil {
		s.search.ReindexAllFromDB(ctx)
	}
	return nil
}

// MatchCompany resolves a free-text company name to at most one canonical
// company, earliest catalog entry winning on ties.
func (s *Service) MatchCompany(ctx context.Context, name string) (*match.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domainError(400, "MISSING_PARAM", "name is required", nil)
	}
	candidates, err := s.companyEntities(ctx)
	if err != nil {
		return nil, err
	}
	return s.matcher.FindMatchingCompany(name, candidates), nil
}

// MatchCompanies returns every canonical company the name matches, in
// catalog order.
func (s *Service) MatchCompanies(ctx context.Context, name string) ([]match.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domainError(400, "MISSING_PARAM", "name is required", nil)
	}
	candidates, err := s.companyEntities(ctx)
	if err != nil {
		return nil, err
	}
	matches := s.matcher.FindMatchingCompanies(name, candidates)
	if matches == nil {
		matches = []match.Entity{}
	}
	return matches, nil
}

// ResolveProduct resolves a product description against the product catalog.
func (s *Service) ResolveProduct(ctx context.Context, name string) (match.Result, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return match.NoMatch(), fmt.Errorf("list products: %w", err)
	}
	candidates := make([]match.Entity, len(products))
	for i, p := range products {
		candidates[i] = match.Entity{ID: p.ID, Name: p.Name}
	}
	result, err := catalog.Resolve(name, candidates)
	if err != nil {
		return match.NoMatch(), domainError(400, "MISSING_PARAM", "name is required", nil)
	}
	return result, nil
}

// LinkProject handles one project-sync webhook delivery.
func (s *Service) LinkProject(ctx context.Context, input ProjectSyncInput) (match.Result, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return match.NoMatch(), fmt.Errorf("list projects: %w", err)
	}
	candidates := make([]match.Entity, len(projects))
	for i, p := range projects {
		candidates[i] = match.Entity{ID: p.ID, Name: p.Name}
	}
	stats := projectlink.Stats{
		EstimatedHours: input.EstimatedHours,
		TotalTasks:     input.TotalTasks,
		CompletedTasks: input.CompletedTasks,
	}
	result, err := s.linker.Link(ctx, input.ExternalID, input.Name, stats, candidates)
	if err != nil {
		if errors.Is(err, projectlink.ErrEmptyName) {
			return match.NoMatch(), domainError(400, "MISSING_PARAM", "name is required", nil)
		}
		return match.NoMatch(), err
	}
	return result, nil
}

// ProjectLinks lists every stored link record keyed by store key.
func (s *Service) ProjectLinks(ctx context.Context) (map[string]projectlink.Record, error) {
	links, err := s.linker.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("list project links: %w", err)
	}
	if links == nil {
		links = map[string]projectlink.Record{}
	}
	return links, nil
}

// Reconcile computes a fresh reconciliation from the stored registry and
// report entries. Report task refs are aligned to registry ids through the
// name matcher before comparison.
func (s *Service) Reconcile(ctx context.Context) (reconcile.Result, error) {
	tasks, err := s.store.ListRegistryTasks(ctx)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("list registry tasks: %w", err)
	}
	registry := make([]reconcile.RegistryTask, len(tasks))
	for i, t := range tasks {
		registry[i] = reconcile.RegistryTask{ID: t.ID, Name: t.Name, Hours: t.Hours, Tags: t.Tags}
	}

	bySource, err := s.store.ListReportEntries(ctx)
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("list report entries: %w", err)
	}
	sources := make([]string, 0, len(bySource))
	for name := range bySource {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	reports := make([]reconcile.PlatformReport, 0, len(sources))
	for _, name := range sources {
		entries := make([]reconcile.Entry, len(bySource[name]))
		for i, e := range bySource[name] {
			entries[i] = reconcile.Entry{TaskRef: e.TaskRef, Hours: e.Hours}
		}
		reports = append(reports, reconcile.PlatformReport{
			SourceName: name,
			Entries:    reconcile.AlignEntries(s.matcher, registry, entries),
		})
	}

	return s.engine.Reconcile(registry, reports), nil
}

// RunReconciliation is the scheduled variant: reconcile, commit the audit
// snapshot, and post the Slack digest. Audit and notification failures are
// logged, not returned; the result itself is still good.
func (s *Service) RunReconciliation(ctx context.Context) (reconcile.Result, error) {
	result, err := s.Reconcile(ctx)
	if err != nil {
		return reconcile.Result{}, err
	}
	if s.audit != nil {
		if _, err := s.audit.RecordRun(result, time.Now().UTC()); err != nil {
			log.Printf("audit: record run: %v", err)
		}
	}
	if err := s.notifier.PostReconciliationSummary(result); err != nil {
		log.Printf("notify: post summary: %v", err)
	}
	return result, nil
}

// ExportReconciliationPDF reconciles and renders the result as a PDF.
func (s *Service) ExportReconciliationPDF(ctx context.Context) (*export.Result, error) {
	result, err := s.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	artifact, err := s.exporter.ReconciliationPDF(result, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	return artifact, nil
}

// SyncRegistry pulls the registry CSV and replaces the stored task set.
func (s *Service) SyncRegistry(ctx context.Context) (SyncSummary, error) {
	if s.registry == nil {
		return SyncSummary{}, domainError(503, "REGISTRY_UNAVAILABLE", "No registry source configured", nil)
	}
	tasks, err := s.registry.Load(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("load registry: %w", err)
	}
	now := time.Now().UTC()
	for i := range tasks {
		tasks[i].SyncedAt = now
	}
	if err := s.store.ReplaceRegistryTasks(ctx, tasks); err != nil {
		return SyncSummary{}, fmt.Errorf("replace registry tasks: %w", err)
	}
	return SyncSummary{TaskCount: len(tasks), SyncedAt: now}, nil
}

// IngestReport stores one platform's hour report lines. This is the only
// write path into report entries; reconciliation reads whatever has been
// ingested so far.
func (s *Service) IngestReport(ctx context.Context, input ReportIngestInput) (int, error) {
	if strings.TrimSpace(input.SourceName) == "" {
		return 0, domainError(400, "MISSING_PARAM", "sourceName is required", nil)
	}
	entries := make([]store.ReportEntry, 0, len(input.Entries))
	for i, e := range input.Entries {
		if strings.TrimSpace(e.TaskRef) == "" {
			return 0, domainError(400, "INVALID_ENTRY", "taskRef is required", map[string]any{"index": i})
		}
		entries = append(entries, store.ReportEntry{TaskRef: e.TaskRef, Hours: e.Hours})
	}
	if err := s.store.InsertReportEntries(ctx, input.SourceName, entries); err != nil {
		return 0, fmt.Errorf("insert report entries: %w", err)
	}
	return len(entries), nil
}

// GetProject looks up one canonical project. A missing id surfaces as
// sql.ErrNoRows, which the HTTP layer maps to 404.
func (s *Service) GetProject(ctx context.Context, id int64) (store.Project, error) {
	return s.store.GetProject(ctx, id)
}

// Summary returns the entity counts for the dashboard landing page.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	companies, products, projects, tasks, err := s.store.SummaryCounts(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("summary counts: %w", err)
	}
	return Summary{
		Companies:     companies,
		Products:      products,
		Projects:      projects,
		RegistryTasks: tasks,
	}, nil
}

// Search proxies to the entity search facade.
func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) companyEntities(ctx context.Context) ([]match.Entity, error) {
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	entities := make([]match.Entity, len(companies))
	for i, c := range companies {
		entities[i] = match.Entity{ID: c.ID, Name: c.Name, Email: c.Email}
	}
	return entities, nil
}
