package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newthinker/signalbot/internal/collector"
	"github.com/newthinker/signalbot/internal/core"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches symbols like AAPL, BRK.B, BTC-USD, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.\-=][A-Za-z0-9]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client *resty.Client
	config collector.Config
}

// New creates a new Yahoo collector
func New() *Yahoo {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (signalbot)")

	return &Yahoo{client: client}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Init(cfg collector.Config) error {
	y.config = cfg
	if cfg.BaseURL != "" {
		y.client.SetBaseURL(cfg.BaseURL)
	}
	if cfg.Timeout > 0 {
		y.client.SetTimeout(cfg.Timeout)
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches historical OHLCV data. Bars with a missing close
// are skipped; an empty chart is returned as an empty slice.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": y.toYahooInterval(interval),
			"period1":  strconv.FormatInt(start.Unix(), 10),
			"period2":  strconv.FormatInt(end.Unix(), 10),
		}).
		Get("/" + y.toYahooSymbol(symbol))
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching history: %w", err))
	}

	var result chartResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		if resp.IsError() {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode()))
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		// Unknown or delisted symbols have nothing to analyze
		if result.Chart.Error.Code == "Not Found" {
			return []core.OHLCV{}, nil
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if resp.IsError() {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode()))
	}

	if len(result.Chart.Result) == 0 {
		return []core.OHLCV{}, nil
	}

	return toOHLCV(symbol, interval, result.Chart.Result[0]), nil
}

func toOHLCV(symbol, interval string, r chartResult) []core.OHLCV {
	if len(r.Indicators.Quote) == 0 {
		return []core.OHLCV{}
	}
	quotes := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePrice := at(quotes.Close, i)
		if closePrice == nil {
			continue // Skip missing data
		}
		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Close:    *closePrice,
			Time:     time.Unix(ts, 0).UTC(),
		}
		if v := at(quotes.Open, i); v != nil {
			bar.Open = *v
		}
		if v := at(quotes.High, i); v != nil {
			bar.High = *v
		}
		if v := at(quotes.Low, i); v != nil {
			bar.Low = *v
		}
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			bar.Volume = *quotes.Volume[i]
		}
		data = append(data, bar)
	}

	return data
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func (y *Yahoo) toYahooInterval(interval string) string {
	switch interval {
	case "1m", "5m", "15m", "1h", "1d", "1wk", "1mo":
		return interval
	default:
		return "1d"
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
