package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"opsboard/api/internal/reconcile"
	"opsboard/api/internal/registry"
)

var (
	registryPath string
	reportSpecs  []string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile --registry tasks.csv --report source=hours.csv [--report ...]",
	Short: "Dry-run a reconciliation over local CSV exports",
	Long: `Reconcile loads a registry CSV and one or more per-source hour
reports, aligns free-text task refs through the matching cascade, and
prints the reconciliation result as JSON.

Report files have two columns: taskRef,hours. A header row is detected
and skipped.

Examples:
  opsctl reconcile --registry tasks.csv --report ticketing=ticket-hours.csv
  opsctl reconcile --registry tasks.csv \
      --report ticketing=a.csv --report time-tracker=b.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(registryPath)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		tasks, err := registry.Parse(file)
		file.Close()
		if err != nil {
			return fmt.Errorf("parse registry: %w", err)
		}

		regTasks := make([]reconcile.RegistryTask, len(tasks))
		for i, t := range tasks {
			regTasks[i] = reconcile.RegistryTask{ID: t.ID, Name: t.Name, Hours: t.Hours, Tags: t.Tags}
		}

		reports := make([]reconcile.PlatformReport, 0, len(reportSpecs))
		for _, spec := range reportSpecs {
			name, path, ok := strings.Cut(spec, "=")
			if !ok {
				return fmt.Errorf("bad --report value %q, want source=path", spec)
			}
			entries, err := parseReportCSV(path)
			if err != nil {
				return fmt.Errorf("report %s: %w", name, err)
			}
			reports = append(reports, reconcile.PlatformReport{
				SourceName: name,
				Entries:    reconcile.AlignEntries(matcher, regTasks, entries),
			})
		}

		result := reconcile.NewEngine(nil).Reconcile(regTasks, reports)
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

func parseReportCSV(path string) ([]reconcile.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var entries []reconcile.Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		ref := strings.TrimSpace(record[0])
		if ref == "" {
			continue
		}
		if line == 1 && strings.EqualFold(ref, "taskRef") {
			continue
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad hours %q", line, record[1])
		}
		entries = append(entries, reconcile.Entry{TaskRef: ref, Hours: hours})
	}
	return entries, nil
}

func init() {
	reconcileCmd.Flags().StringVar(&registryPath, "registry", "", "registry CSV file (required)")
	reconcileCmd.Flags().StringArrayVar(&reportSpecs, "report", nil, "source=path of an hour-report CSV (repeatable)")
	_ = reconcileCmd.MarkFlagRequired("registry")
	rootCmd.AddCommand(reconcileCmd)
}
