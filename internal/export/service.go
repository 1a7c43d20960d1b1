// Package export renders the reconciliation report as a downloadable PDF.
package export

import (
	"fmt"
	"time"

	"opsboard/api/internal/reconcile"
)

// Result is a generated export artifact.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Service turns reconciliation results into report files.
type Service struct{}

// NewService creates an export service.
func NewService() *Service {
	return &Service{}
}

// ReconciliationPDF renders the report HTML and prints it to PDF.
func (s *Service) ReconciliationPDF(result reconcile.Result, generatedAt time.Time) (*Result, error) {
	html, err := renderReportHTML(result, generatedAt)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	title := "reconciliation-" + generatedAt.Format("2006-01-02")
	return renderPDF(html, title)
}
