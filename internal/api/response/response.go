// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/signalbot/internal/core"
)

// RequestIDHeader is set on the response by the logging middleware
const RequestIDHeader = "X-Request-ID"

// Page describes one slice of a listing.
type Page struct {
	Total  int `json:"total"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset"`
}

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Page      *Page     `json:"page,omitempty"`
}

// SuccessResponse is the envelope of every JSON success.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail carries the core error code of a failed request.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the envelope of every JSON error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes data in the success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{Data: data, Meta: meta(w)})
}

// List writes one page of items under key, with the paging in meta.
func List(w http.ResponseWriter, key string, items any, page Page) {
	m := meta(w)
	m.Page = &page
	write(w, http.StatusOK, SuccessResponse{Data: map[string]any{key: items}, Meta: m})
}

// Error writes err in the error envelope. Errors that are not a
// *core.Error are reported as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:      "INTERNAL_ERROR",
		Message:   "an internal error occurred",
		RequestID: w.Header().Get(RequestIDHeader),
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	write(w, status, ErrorResponse{Error: detail})
}

// CSV streams a CSV attachment produced by fn.
func CSV(w http.ResponseWriter, filename string, fn func(io.Writer) error) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	return fn(w)
}

func meta(w http.ResponseWriter) Meta {
	return Meta{
		Timestamp: time.Now().UTC(),
		RequestID: w.Header().Get(RequestIDHeader),
	}
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
