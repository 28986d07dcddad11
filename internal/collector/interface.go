package collector

import (
	"context"
	"time"

	"github.com/newthinker/signalbot/internal/core"
)

// Config holds collector configuration
type Config struct {
	Path    string        // CSV collector source directory or file
	BaseURL string        // overrides the provider endpoint
	Timeout time.Duration // per-request timeout
	Extra   map[string]any
}

// HistoryProvider supplies historical bars for a symbol and date range
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Collector defines the interface for market data collectors
type Collector interface {
	HistoryProvider

	Name() string
	Init(cfg Config) error
}
