// internal/api/handler/api/symbols.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/signalbot/internal/api/response"
	"go.uber.org/zap"
)

// DefaultSearchURL is the Yahoo Finance autocomplete endpoint
const DefaultSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

// SymbolSearchResult represents a single search result
type SymbolSearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// SymbolsHandler handles symbol search API requests
type SymbolsHandler struct {
	client *resty.Client
	logger *zap.Logger
}

// NewSymbolsHandler creates a new symbols handler. An empty searchURL
// uses Yahoo Finance.
func NewSymbolsHandler(searchURL string, logger *zap.Logger) *SymbolsHandler {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(searchURL).
		SetTimeout(10*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &SymbolsHandler{client: client, logger: logger}
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// Search handles GET /api/v1/symbols/search?q=<query>
func (h *SymbolsHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	results := []SymbolSearchResult{}
	if len(query) < 2 {
		response.JSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	var body yahooSearchResponse
	resp, err := h.client.R().
		SetContext(r.Context()).
		SetQueryParams(map[string]string{
			"q":           query,
			"quotesCount": "10",
			"newsCount":   "0",
		}).
		SetResult(&body).
		Get("")
	if err != nil || resp.IsError() {
		// Search is a convenience; a failed lookup returns no results
		h.logger.Warn("symbol search failed", zap.String("query", query), zap.Error(err))
		response.JSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	for _, q := range body.Quotes {
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, SymbolSearchResult{
			Symbol: q.Symbol,
			Name:   name,
			Type:   detectType(q.QuoteType),
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{"results": results})
}

// detectType maps a Yahoo quote type to an asset type
func detectType(quoteType string) string {
	switch strings.ToUpper(quoteType) {
	case "ETF":
		return "etf"
	case "INDEX":
		return "index"
	case "CRYPTOCURRENCY":
		return "crypto"
	case "MUTUALFUND":
		return "fund"
	default:
		return "stock"
	}
}
