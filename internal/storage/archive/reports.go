package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
	"go.uber.org/zap"
)

const reportsRoot = "reports"

// ReportArchiver writes finished reports to cold storage, laid out as
// reports/<SYMBOL>/<YYYY-MM-DD>/<id>.json with the indicator table
// alongside as <id>.csv.
type ReportArchiver struct {
	storage Storage
	logger  *zap.Logger
}

// NewReportArchiver wraps a storage backend
func NewReportArchiver(storage Storage, logger *zap.Logger) *ReportArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportArchiver{storage: storage, logger: logger}
}

// ReportPath returns the archive path of a report file with the given extension
func ReportPath(r *report.Report, ext string) string {
	return path.Join(reportsRoot, safeSegment(r.Symbol), r.CreatedAt.Format("2006-01-02"), r.ID+"."+ext)
}

// Archive stores the report JSON and its indicator CSV
func (a *ReportArchiver) Archive(ctx context.Context, r *report.Report) error {
	var js bytes.Buffer
	if err := report.WriteJSON(&js, r); err != nil {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encoding report: %w", err))
	}
	jsonPath := ReportPath(r, "json")
	if err := a.storage.Write(ctx, jsonPath, js.Bytes()); err != nil {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", jsonPath, err))
	}

	if len(r.Rows) > 0 {
		var csv bytes.Buffer
		if err := report.WriteCSV(&csv, r.Rows); err != nil {
			return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encoding rows: %w", err))
		}
		csvPath := ReportPath(r, "csv")
		if err := a.storage.Write(ctx, csvPath, csv.Bytes()); err != nil {
			return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", csvPath, err))
		}
	}

	a.logger.Debug("report archived",
		zap.String("id", r.ID),
		zap.String("symbol", r.Symbol),
		zap.String("path", jsonPath),
	)
	return nil
}

// Load reads an archived report
func (a *ReportArchiver) Load(ctx context.Context, p string) (*report.Report, error) {
	data, err := a.storage.Read(ctx, p)
	if err != nil {
		return nil, core.WrapError(core.ErrReportNotFound, err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", p, err)
	}
	return &r, nil
}

// List returns the archived report JSON paths for a symbol, or for every
// symbol when symbol is empty, in lexical order.
func (a *ReportArchiver) List(ctx context.Context, symbol string) ([]string, error) {
	prefix := reportsRoot
	if symbol != "" {
		prefix = path.Join(reportsRoot, safeSegment(symbol))
	}

	paths, err := a.storage.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			result = append(result, p)
		}
	}
	sort.Strings(result)
	return result, nil
}

// safeSegment keeps symbols like ^GSPC or BRK/B from creating odd paths
func safeSegment(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_', r == '=':
			return r
		default:
			return '_'
		}
	}, s)
}
