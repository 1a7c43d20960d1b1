package store

import "time"

// Company is a canonical company record.
type Company struct {
	ID    int64
	Name  string
	Email string
}

// Product is a canonical catalog entry.
type Product struct {
	ID   int64
	Name string
}

// Project is a canonical project record.
type Project struct {
	ID   int64
	Name string
}

// RegistryTask mirrors one row of the spreadsheet task registry.
type RegistryTask struct {
	ID       string
	Name     string
	Hours    float64
	Tags     []string
	SyncedAt time.Time
}

// ReportEntry is one raw hour-report line ingested from a platform.
type ReportEntry struct {
	ID         int64
	SourceName string
	TaskRef    string
	Hours      float64
	ReportedAt time.Time
}
