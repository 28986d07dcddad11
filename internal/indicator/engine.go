package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/signalbot/internal/core"
)

// Params holds indicator window lengths
type Params struct {
	RSIPeriod  int `mapstructure:"rsi_period" json:"rsi_period"`
	MACDFast   int `mapstructure:"macd_fast" json:"macd_fast"`
	MACDSlow   int `mapstructure:"macd_slow" json:"macd_slow"`
	MACDSignal int `mapstructure:"macd_signal" json:"macd_signal"`
	ShortMA    int `mapstructure:"short_ma" json:"short_ma"`
	LongMA     int `mapstructure:"long_ma" json:"long_ma"`
}

// DefaultParams returns RSI-14, MACD 12/26/9 and the 50/200 moving averages
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		ShortMA:    50,
		LongMA:     200,
	}
}

// Validate checks that all windows are positive and ordered
func (p Params) Validate() error {
	if p.RSIPeriod <= 0 || p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 || p.ShortMA <= 0 || p.LongMA <= 0 {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("all periods must be positive: %+v", p))
	}
	if p.MACDFast >= p.MACDSlow {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("macd_fast (%d) must be less than macd_slow (%d)", p.MACDFast, p.MACDSlow))
	}
	if p.ShortMA >= p.LongMA {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("short_ma (%d) must be less than long_ma (%d)", p.ShortMA, p.LongMA))
	}
	return nil
}

// Warmup is the number of observations needed before the first complete row
func (p Params) Warmup() int {
	w := p.LongMA
	if p.RSIPeriod+1 > w {
		w = p.RSIPeriod + 1
	}
	if p.MACDSlow+p.MACDSignal-1 > w {
		w = p.MACDSlow + p.MACDSignal - 1
	}
	return w
}

// Row is one observation with every indicator defined
type Row struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	RSI     float64   `json:"rsi"`
	MACD    float64   `json:"macd"` // histogram
	ShortMA float64   `json:"ma_short"`
	LongMA  float64   `json:"ma_long"`
}

// Complete reports whether every indicator value is a finite number
func (r Row) Complete() bool {
	for _, v := range []float64{r.Close, r.RSI, r.MACD, r.ShortMA, r.LongMA} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Engine computes indicator rows for a price series
type Engine struct {
	params Params
}

// NewEngine creates an engine with the given params
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

// Params returns the engine's window lengths
func (e *Engine) Params() Params {
	return e.params
}

// Compute returns one row per observation that has all indicators
// defined, in input order. Observations inside the warmup window are
// dropped, and points whose close is not a finite number are ignored
// before any window is computed. The input must be ordered by time.
func (e *Engine) Compute(series []core.PricePoint) []Row {
	series = finitePoints(series)
	if len(series) == 0 {
		return []Row{}
	}

	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Close
	}

	rsi := RSI(prices, e.params.RSIPeriod)
	macd := MACD(prices, e.params.MACDFast, e.params.MACDSlow, e.params.MACDSignal)
	shortMA := SMASeries(prices, e.params.ShortMA)
	longMA := SMASeries(prices, e.params.LongMA)

	rows := make([]Row, 0, len(series))
	for i, p := range series {
		row := Row{
			Time:    p.Time,
			Close:   p.Close,
			RSI:     rsi[i],
			MACD:    macd.Histogram[i],
			ShortMA: shortMA[i],
			LongMA:  longMA[i],
		}
		if !row.Complete() {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

// finitePoints drops points with a NaN or infinite close. One such point
// would otherwise poison every rolling window that follows it.
func finitePoints(series []core.PricePoint) []core.PricePoint {
	for i, p := range series {
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
			out := append(make([]core.PricePoint, 0, len(series)), series[:i]...)
			for _, q := range series[i+1:] {
				if !math.IsNaN(q.Close) && !math.IsInf(q.Close, 0) {
					out = append(out, q)
				}
			}
			return out
		}
	}
	return series
}

var defaultEngine = &Engine{params: DefaultParams()}

// Compute runs the default engine (RSI-14, MACD 12/26/9, MA50, MA200)
func Compute(series []core.PricePoint) []Row {
	return defaultEngine.Compute(series)
}
