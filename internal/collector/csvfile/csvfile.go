// Package csvfile reads daily bars from local CSV exports laid out as
// Date,Open,High,Low,Close,Volume (Yahoo's download format).
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalbot/internal/collector"
	"github.com/newthinker/signalbot/internal/core"
)

const dateLayout = "2006-01-02"

// CSV loads history from <Path>/<SYMBOL>.csv, or from Path itself when it
// names a file.
type CSV struct {
	path string
}

// New creates a CSV collector rooted at path
func New(path string) *CSV {
	return &CSV{path: path}
}

func (c *CSV) Name() string {
	return "csv"
}

func (c *CSV) Init(cfg collector.Config) error {
	if cfg.Path != "" {
		c.path = cfg.Path
	}
	if c.path == "" {
		return core.WrapError(core.ErrConfigMissing, errors.New("csv collector requires a path"))
	}
	return nil
}

func (c *CSV) fileFor(symbol string) string {
	info, err := os.Stat(c.path)
	if err == nil && !info.IsDir() {
		return c.path
	}
	return filepath.Join(c.path, strings.ToUpper(symbol)+".csv")
}

// FetchHistory returns the bars within [start, end]. A zero start or end
// leaves that side of the range open.
func (c *CSV) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(c.fileFor(symbol))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.WrapError(core.ErrSymbolNotFound, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	bars, err := Parse(f, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	result := make([]core.OHLCV, 0, len(bars))
	for _, bar := range bars {
		if !start.IsZero() && bar.Time.Before(start) {
			continue
		}
		if !end.IsZero() && bar.Time.After(end) {
			continue
		}
		bar.Interval = "1d"
		result = append(result, bar)
	}
	return result, nil
}

// Parse reads CSV rows with a header line. Rows whose close is missing,
// "null" or not a finite number are skipped.
func Parse(r io.Reader, symbol string) ([]core.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []core.OHLCV{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols, err := columns(header)
	if err != nil {
		return nil, err
	}

	var bars []core.OHLCV
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		closeStr := field(record, cols["close"])
		if closeStr == "" || closeStr == "null" {
			continue
		}

		ts, err := time.Parse(dateLayout, field(record, cols["date"]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid close: %w", line, err)
		}
		if math.IsNaN(closePrice) || math.IsInf(closePrice, 0) {
			continue
		}

		bars = append(bars, core.OHLCV{
			Symbol: symbol,
			Time:   ts,
			Open:   optFloat(field(record, cols["open"])),
			High:   optFloat(field(record, cols["high"])),
			Low:    optFloat(field(record, cols["low"])),
			Close:  closePrice,
			Volume: optInt(field(record, cols["volume"])),
		})
	}

	return core.NormalizeSeries(bars), nil
}

func columns(header []string) (map[string]int, error) {
	cols := map[string]int{"open": -1, "high": -1, "low": -1, "volume": -1}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["date"]; !ok {
		return nil, errors.New("missing Date column")
	}
	if _, ok := cols["close"]; !ok {
		return nil, errors.New("missing Close column")
	}
	return cols, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func optFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func optInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
