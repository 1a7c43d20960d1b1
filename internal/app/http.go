package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"opsboard/api/internal/export"
	"opsboard/api/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	syncToken  string
}

func NewHTTPServer(service *Service, corsOrigin, syncToken string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, syncToken: syncToken}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"success": status == "ready",
			"status":  status,
			"checks":  checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/companies/match" {
		entity, err := s.service.MatchCompany(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "match": entity})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/companies/matches" {
		matches, err := s.service.MatchCompanies(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "matches": matches})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/products/resolve" {
		result, err := s.service.ResolveProduct(r.Context(), r.URL.Query().Get("name"))
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"matchedEntity": result.Entity,
			"strategy":      result.Strategy,
			"score":         result.Score,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/webhooks/project-sync" {
		if !s.validSyncToken(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid sync token", nil)
			return
		}
		var body ProjectSyncInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.LinkProject(r.Context(), body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"matchedEntity": result.Entity,
			"strategy":      result.Strategy,
			"score":         result.Score,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/webhooks/report-entries" {
		if !s.validSyncToken(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid sync token", nil)
			return
		}
		var body ReportIngestInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		inserted, err := s.service.IngestReport(r.Context(), body)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"sourceName": body.SourceName,
			"inserted":   inserted,
		})
		return
	}

	if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/projects/") {
		id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/projects/"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
			return
		}
		project, err := s.service.GetProject(r.Context(), id)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"project": map[string]any{"id": project.ID, "name": project.Name},
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/summary" {
		summary, err := s.service.Summary(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": summary})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/project-links" {
		links, err := s.service.ProjectLinks(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "links": links})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/reconciliation" {
		result, err := s.service.Reconcile(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/reconciliation/export" {
		artifact, err := s.service.ExportReconciliationPDF(r.Context())
		if err != nil {
			if errors.Is(err, export.ErrPDFDependencyMissing) {
				writeError(w, http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this host", nil)
				return
			}
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		w.Header().Set("Content-Type", artifact.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(artifact.Data)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/registry/sync" {
		if !s.validSyncToken(r) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid sync token", nil)
			return
		}
		summary, err := s.service.SyncRegistry(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"taskCount": summary.TaskCount,
			"syncedAt":  summary.SyncedAt,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := r.URL.Query()
		q := search.Query{
			Text:       query.Get("q"),
			FilterType: search.ResultType(query.Get("type")),
			Limit:      queryInt(query.Get("limit"), 20),
			Offset:     queryInt(query.Get("offset"), 0),
		}
		response := s.service.Search(r.Context(), q)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"results": response.Results,
			"total":   response.Total,
			"query":   response.Query,
		})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) validSyncToken(r *http.Request) bool {
	token := r.Header.Get("X-Sync-Token")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.syncToken)) == 1
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"success": false,
		"code":    code,
		"error":   message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Sync-Token, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
