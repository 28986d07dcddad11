// internal/api/handler/api/analysis.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/signalbot/internal/api/job"
	"github.com/newthinker/signalbot/internal/api/response"
	"github.com/newthinker/signalbot/internal/app"
	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultRunTimeout = 60 * time.Second

// AnalysisApp defines the interface needed from app.App.
type AnalysisApp interface {
	DefaultRequest(symbol string, now time.Time) (app.RunRequest, error)
	Run(ctx context.Context, req app.RunRequest) (*report.Report, error)
	Symbols() []string
	Strategies() []string
}

// AnalysisRequest is the request body for starting a run. Empty fields
// fall back to the configured defaults.
type AnalysisRequest struct {
	Symbol          string   `json:"symbol"`
	Start           string   `json:"start,omitempty"`
	End             string   `json:"end,omitempty"`
	Interval        string   `json:"interval,omitempty"`
	Strategy        string   `json:"strategy,omitempty"`
	StartingBalance *float64 `json:"starting_balance,omitempty"`
	Tail            int      `json:"tail,omitempty"`
	Alerts          *bool    `json:"alerts,omitempty"`
}

// AnalysisHandler handles analysis API requests.
type AnalysisHandler struct {
	app     AnalysisApp
	jobs    *job.Store
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(a AnalysisApp, jobs *job.Store, timeout time.Duration, logger *zap.Logger) *AnalysisHandler {
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{app: a, jobs: jobs, timeout: timeout, logger: logger}
}

// Run executes one analysis synchronously and returns its report.
// POST takes a JSON body, GET takes the same fields as query parameters.
func (h *AnalysisHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, err := h.parse(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rep, err := h.app.Run(ctx, req)
	if err != nil {
		response.Error(w, statusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, rep)
}

// Submit starts an analysis in the background and returns its job.
func (h *AnalysisHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := h.parse(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.jobs.Create(req.Symbol)
	go h.runJob(j.ID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

func (h *AnalysisHandler) runJob(jobID string, req app.RunRequest) {
	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rep, err := h.app.Run(ctx, req)
	if err != nil {
		h.logger.Warn("analysis job failed", zap.String("job_id", jobID), zap.Error(err))
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.ReportID = rep.ID
	})
}

// GetJob returns the status of an analysis job.
func (h *AnalysisHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// ListJobs returns all live analysis jobs.
func (h *AnalysisHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()
	response.List(w, "jobs", jobs, response.Page{Total: len(jobs)})
}

// Options returns the symbols and strategies offered for analysis.
func (h *AnalysisHandler) Options(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"symbols":    h.app.Symbols(),
		"strategies": h.app.Strategies(),
	})
}

func (h *AnalysisHandler) parse(r *http.Request) (app.RunRequest, error) {
	var body AnalysisRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return app.RunRequest{}, core.WrapError(core.ErrConfigInvalid, err)
		}
	} else {
		var err error
		if body, err = queryRequest(r); err != nil {
			return app.RunRequest{}, err
		}
	}

	req, err := h.app.DefaultRequest(body.Symbol, time.Now())
	if err != nil {
		return app.RunRequest{}, err
	}

	if body.Start != "" {
		t, err := time.Parse(config.DateLayout, body.Start)
		if err != nil {
			return app.RunRequest{}, core.WrapError(core.ErrConfigInvalid, err)
		}
		req.From = t
	}
	if body.End != "" {
		t, err := time.Parse(config.DateLayout, body.End)
		if err != nil {
			return app.RunRequest{}, core.WrapError(core.ErrConfigInvalid, err)
		}
		req.To = t
	}
	if body.Interval != "" {
		req.Interval = body.Interval
	}
	if body.Strategy != "" {
		req.Strategy = body.Strategy
	}
	if body.StartingBalance != nil {
		if *body.StartingBalance <= 0 {
			return app.RunRequest{}, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("starting_balance must be positive"))
		}
		req.StartingBalance = decimal.NewFromFloat(*body.StartingBalance)
	}
	if body.Tail > 0 {
		req.Tail = body.Tail
	}
	if body.Alerts != nil {
		req.Alerts = *body.Alerts
	}

	return req, nil
}

func queryRequest(r *http.Request) (AnalysisRequest, error) {
	q := r.URL.Query()
	body := AnalysisRequest{
		Symbol:   q.Get("symbol"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Interval: q.Get("interval"),
		Strategy: q.Get("strategy"),
	}

	if v := q.Get("starting_balance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return body, core.WrapError(core.ErrConfigInvalid, err)
		}
		body.StartingBalance = &f
	}
	if v := q.Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return body, core.WrapError(core.ErrConfigInvalid, err)
		}
		body.Tail = n
	}
	if v := q.Get("alerts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return body, core.WrapError(core.ErrConfigInvalid, err)
		}
		body.Alerts = &b
	}

	return body, nil
}

// statusFor maps run errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidParams), errors.Is(err, core.ErrConfigInvalid):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSymbolNotFound), errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCollectorTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrCollectorFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return core.WrapError(core.ErrSimulationFailed, err)
}
