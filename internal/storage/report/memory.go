package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
)

// MemoryStore is an in-memory report store that keeps the newest maxSize reports.
type MemoryStore struct {
	reports []*report.Report
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &MemoryStore{
		reports: make([]*report.Report, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a report to the store.
func (m *MemoryStore) Save(ctx context.Context, r *report.Report) error {
	if r == nil || r.ID == "" {
		return errors.New("report must have an id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, r)

	// Trim if over capacity (remove oldest)
	if len(m.reports) > m.maxSize {
		m.reports = m.reports[len(m.reports)-m.maxSize:]
	}

	return nil
}

// GetByID retrieves a report by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, core.WrapError(core.ErrReportNotFound, fmt.Errorf("id %s", id))
}

// List returns report summaries matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]report.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []report.Summary{}
	for i := len(m.reports) - 1; i >= 0; i-- {
		if m.matches(m.reports[i], filter) {
			result = append(result, m.reports[i].Summarize())
		}
	}

	// Apply offset and limit
	if filter.Offset > 0 && filter.Offset < len(result) {
		result = result[filter.Offset:]
	} else if filter.Offset >= len(result) && filter.Offset > 0 {
		return []report.Summary{}, nil
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching reports.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.reports {
		if m.matches(r, filter) {
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored reports.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

func (m *MemoryStore) matches(r *report.Report, filter ListFilter) bool {
	if filter.Symbol != "" && r.Symbol != filter.Symbol {
		return false
	}
	if filter.Strategy != "" && r.Strategy != filter.Strategy {
		return false
	}
	if !filter.From.IsZero() && r.CreatedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && r.CreatedAt.After(filter.To) {
		return false
	}
	return true
}
