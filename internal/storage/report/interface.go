// Package report indexes finished run reports for the API.
package report

import (
	"context"
	"time"

	"github.com/newthinker/signalbot/internal/report"
)

// Store defines the interface for report persistence.
type Store interface {
	// Save persists a report under its ID.
	Save(ctx context.Context, r *report.Report) error

	// GetByID retrieves a report by its ID.
	GetByID(ctx context.Context, id string) (*report.Report, error)

	// List retrieves report summaries matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]report.Summary, error)

	// Count returns the number of reports matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing reports.
type ListFilter struct {
	Symbol   string
	Strategy string
	From     time.Time // created at or after
	To       time.Time // created at or before
	Limit    int
	Offset   int
}
