// internal/api/handler/api/reports.go
package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalbot/internal/api/response"
	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
	"github.com/newthinker/signalbot/internal/storage/archive"
	reportstore "github.com/newthinker/signalbot/internal/storage/report"
)

const defaultListLimit = 50

// ReportsHandler handles report API requests.
type ReportsHandler struct {
	store    reportstore.Store
	archiver *archive.ReportArchiver
}

// NewReportsHandler creates a new reports handler. archiver may be nil.
func NewReportsHandler(store reportstore.Store, archiver *archive.ReportArchiver) *ReportsHandler {
	return &ReportsHandler{store: store, archiver: archiver}
}

// List returns report summaries matching query parameters.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := reportstore.ListFilter{
		Symbol:   strings.ToUpper(q.Get("symbol")),
		Strategy: q.Get("strategy"),
		From:     parseTime(q.Get("from")),
		To:       parseTime(q.Get("to")),
		Limit:    defaultListLimit,
	}

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}

	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	reports, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	total, _ := h.store.Count(r.Context(), filter)

	response.List(w, "reports", reports, response.Page{
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetByID returns a single report. ?format=csv returns the indicator
// table as CSV instead.
func (h *ReportsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, rep)
		return
	}

	response.JSON(w, http.StatusOK, rep)
}

// CSV returns a report's indicator table as CSV.
func (h *ReportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	rep, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	writeCSV(w, rep)
}

// Archived lists archived report paths, optionally for one symbol.
func (h *ReportsHandler) Archived(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive not configured")))
		return
	}

	paths, err := h.archiver.List(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	response.List(w, "paths", paths, response.Page{Total: len(paths)})
}

// LoadArchived returns an archived report by its archive path.
func (h *ReportsHandler) LoadArchived(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		response.Error(w, http.StatusNotFound,
			core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive not configured")))
		return
	}

	rep, err := h.archiver.Load(r.Context(), r.PathValue("path"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	response.JSON(w, http.StatusOK, rep)
}

func writeCSV(w http.ResponseWriter, rep *report.Report) {
	response.CSV(w, rep.Symbol+"_"+rep.ID+".csv", func(out io.Writer) error {
		return report.WriteCSV(out, rep.Rows)
	})
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if t, err := time.Parse(config.DateLayout, v); err == nil {
		return t
	}
	return time.Time{}
}
