package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"opsboard/api/internal/config"
	"opsboard/api/internal/match"
	"opsboard/api/internal/projectlink"
	"opsboard/api/internal/reconcile"
	"opsboard/api/internal/store"
)

type fakeStore struct {
	companies     []store.Company
	products      []store.Product
	projects      []store.Project
	registryTasks []store.RegistryTask
	reportEntries map[string][]store.ReportEntry

	replacedTasks   []store.RegistryTask
	insertedSource  string
	insertedEntries []store.ReportEntry
	pingErr         error
	listErr         error
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) ListCompanies(context.Context) ([]store.Company, error) {
	return f.companies, f.listErr
}

func (f *fakeStore) ListProducts(context.Context) ([]store.Product, error) {
	return f.products, f.listErr
}

func (f *fakeStore) ListProjects(context.Context) ([]store.Project, error) {
	return f.projects, f.listErr
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (store.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Project{}, sql.ErrNoRows
}

func (f *fakeStore) InsertReportEntries(_ context.Context, sourceName string, entries []store.ReportEntry) error {
	f.insertedSource = sourceName
	f.insertedEntries = append(f.insertedEntries, entries...)
	return nil
}

func (f *fakeStore) ListRegistryTasks(context.Context) ([]store.RegistryTask, error) {
	return f.registryTasks, f.listErr
}

func (f *fakeStore) ReplaceRegistryTasks(_ context.Context, tasks []store.RegistryTask) error {
	f.replacedTasks = tasks
	return nil
}

func (f *fakeStore) ListReportEntries(context.Context) (map[string][]store.ReportEntry, error) {
	return f.reportEntries, f.listErr
}

func (f *fakeStore) SummaryCounts(context.Context) (int, int, int, int, error) {
	return len(f.companies), len(f.products), len(f.projects), len(f.registryTasks), nil
}

type fakeRegistry struct {
	tasks []store.RegistryTask
	err   error
}

func (f *fakeRegistry) Load(context.Context) ([]store.RegistryTask, error) {
	return f.tasks, f.err
}

func newTestService(fs *fakeStore) *Service {
	return New(config.Config{}, Deps{
		Store:  fs,
		Linker: projectlink.NewLinker(projectlink.NewMemoryStore()),
	})
}

func TestMatchCompanyRequiresName(t *testing.T) {
	service := newTestService(&fakeStore{})

	_, err := service.MatchCompany(context.Background(), "   ")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Status != 400 || domainErr.Code != "MISSING_PARAM" {
		t.Fatalf("unexpected error: %+v", domainErr)
	}
}

func TestMatchCompanyFindsCanonicalRecord(t *testing.T) {
	service := newTestService(&fakeStore{companies: []store.Company{
		{ID: 1, Name: "JKS Technology Solutions", Email: "ops@jks.example"},
		{ID: 2, Name: "Makati Medical Center"},
	}})

	entity, err := service.MatchCompany(context.Background(), "JKS")
	if err != nil {
		t.Fatalf("MatchCompany: %v", err)
	}
	if entity == nil || entity.ID != 1 {
		t.Fatalf("expected company 1, got %+v", entity)
	}

	entity, err = service.MatchCompany(context.Background(), "Globex Corp")
	if err != nil {
		t.Fatalf("MatchCompany: %v", err)
	}
	if entity != nil {
		t.Fatalf("expected no match, got %+v", entity)
	}
}

func TestMatchCompaniesReturnsEmptySliceNotNil(t *testing.T) {
	service := newTestService(&fakeStore{})

	matches, err := service.MatchCompanies(context.Background(), "Nobody")
	if err != nil {
		t.Fatalf("MatchCompanies: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty slice, got %#v", matches)
	}
}

func TestResolveProduct(t *testing.T) {
	service := newTestService(&fakeStore{products: []store.Product{
		{ID: 10, Name: "Trellix Email Security"},
	}})

	result, err := service.ResolveProduct(context.Background(), "Trellix Email Security")
	if err != nil {
		t.Fatalf("ResolveProduct: %v", err)
	}
	if result.Strategy != match.StrategyExact || result.Entity == nil || result.Entity.ID != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := service.ResolveProduct(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestLinkProjectStoresRecord(t *testing.T) {
	linkStore := projectlink.NewMemoryStore()
	fs := &fakeStore{projects: []store.Project{{ID: 7, Name: "Website Redesign"}}}
	service := New(config.Config{}, Deps{
		Store:  fs,
		Linker: projectlink.NewLinker(linkStore),
	})

	result, err := service.LinkProject(context.Background(), ProjectSyncInput{
		ExternalID:     "ext-42",
		Name:           "Website Redesign 2026",
		EstimatedHours: 120,
		TotalTasks:     30,
		CompletedTasks: 12,
	})
	if err != nil {
		t.Fatalf("LinkProject: %v", err)
	}
	if result.Entity == nil || result.Entity.ID != 7 {
		t.Fatalf("expected link to project 7, got %+v", result)
	}

	links, err := service.ProjectLinks(context.Background())
	if err != nil {
		t.Fatalf("ProjectLinks: %v", err)
	}
	record, ok := links[projectlink.ProjectKey(7)]
	if !ok {
		t.Fatalf("expected stored record, got %#v", links)
	}
	if record.EstimatedHours != 120 || record.TotalTasks != 30 || record.CompletedTasks != 12 {
		t.Fatalf("unexpected stats: %+v", record)
	}
}

func TestReconcileAlignsReportRefs(t *testing.T) {
	fs := &fakeStore{
		registryTasks: []store.RegistryTask{
			{ID: "T-1", Name: "Security Audit", Hours: 8},
		},
		reportEntries: map[string][]store.ReportEntry{
			"ticketing": {
				// Refs arrive as task names with decoration, not ids.
				{TaskRef: "Security Audit (external)", Hours: 8},
			},
		},
	}
	service := newTestService(fs)

	result, err := service.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	summary := result.PerSource["ticketing"]
	if summary.MatchedTaskCount != 1 || summary.TotalHours != 8 {
		t.Fatalf("unexpected ticketing summary: %+v", summary)
	}
	for _, d := range result.Discrepancies {
		if d.TaskID == "T-1" && d.Delta != 0 {
			t.Fatalf("aligned entry should not produce a hour delta: %+v", d)
		}
	}
}

func TestSyncRegistryReplacesTasks(t *testing.T) {
	fs := &fakeStore{}
	service := New(config.Config{}, Deps{
		Store:  fs,
		Linker: projectlink.NewLinker(projectlink.NewMemoryStore()),
		Registry: &fakeRegistry{tasks: []store.RegistryTask{
			{ID: "T-1", Name: "Audit", Hours: 8},
			{ID: "T-2", Name: "Rollout", Hours: 16},
		}},
	})

	summary, err := service.SyncRegistry(context.Background())
	if err != nil {
		t.Fatalf("SyncRegistry: %v", err)
	}
	if summary.TaskCount != 2 {
		t.Fatalf("expected 2 tasks, got %d", summary.TaskCount)
	}
	if len(fs.replacedTasks) != 2 {
		t.Fatalf("expected store replace with 2 tasks, got %d", len(fs.replacedTasks))
	}
	for _, task := range fs.replacedTasks {
		if task.SyncedAt.IsZero() {
			t.Fatalf("expected SyncedAt to be stamped: %+v", task)
		}
	}
}

func TestSyncRegistryWithoutSource(t *testing.T) {
	service := newTestService(&fakeStore{})

	_, err := service.SyncRegistry(context.Background())
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 503 {
		t.Fatalf("expected 503 DomainError, got %v", err)
	}
}

func TestIngestReportStoresEntries(t *testing.T) {
	fs := &fakeStore{}
	service := newTestService(fs)

	input := ReportIngestInput{
		SourceName: "ticketing",
		Entries:    []ReportEntryInput{{TaskRef: "T-1", Hours: 6}},
	}

	inserted, err := service.IngestReport(context.Background(), input)
	if err != nil {
		t.Fatalf("IngestReport: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 inserted, got %d", inserted)
	}
	if fs.insertedSource != "ticketing" || len(fs.insertedEntries) != 1 {
		t.Fatalf("unexpected store writes: source=%q entries=%d", fs.insertedSource, len(fs.insertedEntries))
	}
	if fs.insertedEntries[0].TaskRef != "T-1" || fs.insertedEntries[0].Hours != 6 {
		t.Fatalf("unexpected entry: %+v", fs.insertedEntries[0])
	}
}

func TestIngestReportValidation(t *testing.T) {
	service := newTestService(&fakeStore{})

	_, err := service.IngestReport(context.Background(), ReportIngestInput{SourceName: "  "})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 400 || domainErr.Code != "MISSING_PARAM" {
		t.Fatalf("expected 400 MISSING_PARAM, got %v", err)
	}

	input := ReportIngestInput{
		SourceName: "ticketing",
		Entries:    []ReportEntryInput{{TaskRef: "", Hours: 2}},
	}
	_, err = service.IngestReport(context.Background(), input)
	if !errors.As(err, &domainErr) || domainErr.Code != "INVALID_ENTRY" {
		t.Fatalf("expected INVALID_ENTRY, got %v", err)
	}
}

func TestGetProjectMissingID(t *testing.T) {
	service := newTestService(&fakeStore{projects: []store.Project{{ID: 1, Name: "Rollout"}}})

	project, err := service.GetProject(context.Background(), 1)
	if err != nil || project.Name != "Rollout" {
		t.Fatalf("expected Rollout, got %+v err=%v", project, err)
	}

	_, err = service.GetProject(context.Background(), 99)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSummaryCounts(t *testing.T) {
	service := newTestService(&fakeStore{
		companies:     []store.Company{{ID: 1}, {ID: 2}},
		products:      []store.Product{{ID: 1}},
		projects:      []store.Project{{ID: 1}},
		registryTasks: []store.RegistryTask{{ID: "T-1"}, {ID: "T-2"}, {ID: "T-3"}},
	})

	summary, err := service.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Companies: 2, Products: 1, Projects: 1, RegistryTasks: 3}
	if summary != want {
		t.Fatalf("expected %+v, got %+v", want, summary)
	}
}

func TestRunReconciliationSurvivesMissingExtras(t *testing.T) {
	// No audit service, no notifier: the scheduled run still reconciles.
	fs := &fakeStore{
		registryTasks: []store.RegistryTask{{ID: "T-1", Name: "Audit", Hours: 8}},
		reportEntries: map[string][]store.ReportEntry{},
	}
	service := newTestService(fs)

	result, err := service.RunReconciliation(context.Background())
	if err != nil {
		t.Fatalf("RunReconciliation: %v", err)
	}
	if len(result.PerSource) != len(reconcile.DefaultSources) {
		t.Fatalf("expected %d sources, got %d", len(reconcile.DefaultSources), len(result.PerSource))
	}
}
