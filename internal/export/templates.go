package export

import (
	"bytes"
	"html/template"
	"sort"
	"strings"
	"time"

	"opsboard/api/internal/reconcile"
)

var reportTemplate = template.Must(template.New("reconciliation").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(reportHTML))

type reportSource struct {
	Name    string
	Summary reconcile.SourceSummary
}

type reportData struct {
	GeneratedAt   string
	Sources       []reportSource
	Discrepancies []reconcile.Discrepancy
}

func renderReportHTML(result reconcile.Result, generatedAt time.Time) (string, error) {
	data := reportData{
		GeneratedAt:   generatedAt.Format("January 2, 2006 15:04 MST"),
		Discrepancies: result.Discrepancies,
	}
	for name, summary := range result.PerSource {
		data.Sources = append(data.Sources, reportSource{Name: name, Summary: summary})
	}
	sort.Slice(data.Sources, func(i, j int) bool { return data.Sources[i].Name < data.Sources[j].Name })

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Reconciliation Report</title>
<style>
  body { font-family: -apple-system, Helvetica, Arial, sans-serif; color: #1a1a1a; margin: 0; }
  h1 { font-size: 22px; margin-bottom: 4px; }
  .meta { color: #666; font-size: 12px; margin-bottom: 24px; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 24px; font-size: 13px; }
  th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 8px; }
  td { border-bottom: 1px solid #ddd; padding: 6px 8px; }
  .delta-pos { color: #b00020; }
  .missing { color: #b06000; }
  .clean { color: #0a7a30; font-size: 14px; }
</style>
</head>
<body>
<h1>Reconciliation Report</h1>
<div class="meta">Generated {{.GeneratedAt}}</div>

<h2>Source totals</h2>
<table>
  <tr><th>Source</th><th>Total hours</th><th>Matched tasks</th><th>Unmatched tasks</th></tr>
  {{range .Sources}}
  <tr>
    <td>{{.Name}}</td>
    <td>{{printf "%.1f" .Summary.TotalHours}}</td>
    <td>{{.Summary.MatchedTaskCount}}</td>
    <td>{{.Summary.UnmatchedTaskCount}}</td>
  </tr>
  {{end}}
</table>

<h2>Discrepancies</h2>
{{if .Discrepancies}}
<table>
  <tr><th>Task</th><th>Name</th><th>Expected</th><th>Delta</th><th>Missing from</th></tr>
  {{range .Discrepancies}}
  <tr>
    <td>{{.TaskID}}</td>
    <td>{{.TaskName}}</td>
    <td>{{printf "%.1f" .ExpectedHours}}</td>
    <td class="delta-pos">{{printf "%+.1f" .Delta}}</td>
    <td class="missing">{{join .MissingSources ", "}}</td>
  </tr>
  {{end}}
</table>
{{else}}
<div class="clean">All sources agree with the registry.</div>
{{end}}
</body>
</html>`
