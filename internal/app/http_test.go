package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"opsboard/api/internal/config"
	"opsboard/api/internal/projectlink"
	"opsboard/api/internal/store"
)

func newTestServer(fs *fakeStore) *httptest.Server {
	service := New(config.Config{}, Deps{
		Store:  fs,
		Linker: projectlink.NewLinker(projectlink.NewMemoryStore()),
	})
	httpServer := NewHTTPServer(service, "*", "test-sync-token")
	return httptest.NewServer(httpServer.Handler())
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected health response: %d %v", resp.StatusCode, body)
	}
}

func TestCompanyMatchEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{companies: []store.Company{
		{ID: 1, Name: "Makati Medical Center"},
	}})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/companies/match?name=" + "Makati+Med")
	if err != nil {
		t.Fatalf("GET match: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	matched, ok := body["match"].(map[string]any)
	if !ok {
		t.Fatalf("expected match object, got %v", body["match"])
	}
	if matched["id"].(float64) != 1 {
		t.Fatalf("expected company 1, got %v", matched)
	}
}

func TestCompanyMatchMissingName(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/companies/match")
	if err != nil {
		t.Fatalf("GET match: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %v", resp.StatusCode, body)
	}
	if body["success"] != false || body["code"] != "MISSING_PARAM" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestProductResolveEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{products: []store.Product{
		{ID: 3, Name: "Trellix Email Security"},
	}})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/products/resolve?name=trellix+email+security")
	if err != nil {
		t.Fatalf("GET resolve: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["strategy"] != "exact" {
		t.Fatalf("expected exact strategy, got %v", body)
	}
}

func TestProjectSyncWebhookRequiresToken(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/webhooks/project-sync", "application/json",
		strings.NewReader(`{"externalId":"e1","name":"Anything"}`))
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d: %v", resp.StatusCode, body)
	}
}

func TestProjectSyncWebhookLinksAndLists(t *testing.T) {
	server := newTestServer(&fakeStore{projects: []store.Project{
		{ID: 9, Name: "Website Redesign"},
	}})
	defer server.Close()

	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/webhooks/project-sync",
		strings.NewReader(`{"externalId":"ext-1","name":"Website Redesign 2026","estimatedHours":40,"totalTasks":10,"completedTasks":2}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("X-Sync-Token", "test-sync-token")

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("POST webhook: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["strategy"] != "edit_distance" {
		t.Fatalf("expected edit_distance strategy, got %v", body)
	}

	resp, err = http.Get(server.URL + "/api/project-links")
	if err != nil {
		t.Fatalf("GET project-links: %v", err)
	}
	listBody := decodeResponse(t, resp)
	links, ok := listBody["links"].(map[string]any)
	if !ok {
		t.Fatalf("expected links object, got %v", listBody)
	}
	if _, ok := links["project:9"]; !ok {
		t.Fatalf("expected link under project:9, got %v", links)
	}
}

func TestReconciliationEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{
		registryTasks: []store.RegistryTask{{ID: "T-1", Name: "Audit", Hours: 8}},
		reportEntries: map[string][]store.ReportEntry{
			"ticketing": {{TaskRef: "T-1", Hours: 6}},
		},
	})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/reconciliation")
	if err != nil {
		t.Fatalf("GET reconciliation: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	result, ok := body["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result object, got %v", body)
	}
	perSource, ok := result["perSource"].(map[string]any)
	if !ok || len(perSource) != 3 {
		t.Fatalf("expected three sources, got %v", result["perSource"])
	}
	discrepancies, ok := result["discrepancies"].([]any)
	if !ok || len(discrepancies) != 1 {
		t.Fatalf("expected one discrepancy, got %v", result["discrepancies"])
	}
}

func TestRegistrySyncEndpoint(t *testing.T) {
	fs := &fakeStore{}
	service := New(config.Config{}, Deps{
		Store:    fs,
		Linker:   projectlink.NewLinker(projectlink.NewMemoryStore()),
		Registry: &fakeRegistry{tasks: []store.RegistryTask{{ID: "T-1", Name: "Audit", Hours: 8}}},
	})
	server := httptest.NewServer(NewHTTPServer(service, "*", "test-sync-token").Handler())
	defer server.Close()

	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/registry/sync", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("X-Sync-Token", "test-sync-token")

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("POST registry/sync: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["taskCount"].(float64) != 1 {
		t.Fatalf("expected taskCount 1, got %v", body)
	}
	if len(fs.replacedTasks) != 1 {
		t.Fatalf("expected replaced tasks in store, got %d", len(fs.replacedTasks))
	}
}

func TestReportIngestWebhookFeedsReconciliation(t *testing.T) {
	fs := &fakeStore{
		registryTasks: []store.RegistryTask{{ID: "T-1", Name: "Audit", Hours: 8}},
	}
	server := newTestServer(fs)
	defer server.Close()

	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/webhooks/report-entries",
		strings.NewReader(`{"sourceName":"ticketing","entries":[{"taskRef":"T-1","hours":6},{"taskRef":"T-1","hours":2}]}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("X-Sync-Token", "test-sync-token")

	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("POST report-entries: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["inserted"].(float64) != 2 {
		t.Fatalf("expected 2 inserted, got %v", body)
	}
	if fs.insertedSource != "ticketing" || len(fs.insertedEntries) != 2 {
		t.Fatalf("unexpected store writes: source=%q entries=%d", fs.insertedSource, len(fs.insertedEntries))
	}

	// Without a token the same payload is rejected before any write.
	resp, err = http.Post(server.URL+"/api/webhooks/report-entries", "application/json",
		strings.NewReader(`{"sourceName":"ticketing","entries":[]}`))
	if err != nil {
		t.Fatalf("POST report-entries: %v", err)
	}
	body = decodeResponse(t, resp)
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d: %v", resp.StatusCode, body)
	}
}

func TestProjectLookupEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{projects: []store.Project{
		{ID: 5, Name: "Website Redesign"},
	}})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/projects/5")
	if err != nil {
		t.Fatalf("GET project: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	project, ok := body["project"].(map[string]any)
	if !ok || project["name"] != "Website Redesign" {
		t.Fatalf("unexpected project body: %v", body)
	}

	resp, err = http.Get(server.URL + "/api/projects/99")
	if err != nil {
		t.Fatalf("GET missing project: %v", err)
	}
	body = decodeResponse(t, resp)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %v", resp.StatusCode, body)
	}

	resp, err = http.Get(server.URL + "/api/projects/not-a-number")
	if err != nil {
		t.Fatalf("GET bad project id: %v", err)
	}
	body = decodeResponse(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d: %v", resp.StatusCode, body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	server := newTestServer(&fakeStore{
		companies:     []store.Company{{ID: 1}},
		registryTasks: []store.RegistryTask{{ID: "T-1"}, {ID: "T-2"}},
	})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	summary, ok := body["summary"].(map[string]any)
	if !ok {
		t.Fatalf("expected summary object, got %v", body)
	}
	if summary["companies"].(float64) != 1 || summary["registryTasks"].(float64) != 2 {
		t.Fatalf("unexpected counts: %v", summary)
	}
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	server := newTestServer(&fakeStore{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/nope")
	if err != nil {
		t.Fatalf("GET unknown: %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %v", resp.StatusCode, body)
	}
}
