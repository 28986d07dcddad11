// Package report assembles the presentation payload of an analysis run:
// the indicator table with signals, the trailing trade log and the final
// wallet.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signalbot/internal/backtest"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/strategy"
	"github.com/shopspring/decimal"
)

// DefaultTail is how many trade log lines and signal rows are shown
const DefaultTail = 10

// NoDataMessage is reported when the source returned no observations
const NoDataMessage = "No data found for selected symbol."

// Row is one line of the indicator table
type Row struct {
	Time    time.Time `json:"time"`
	Close   float64   `json:"close"`
	RSI     float64   `json:"rsi"`
	MACD    float64   `json:"macd"`
	ShortMA float64   `json:"ma_short"`
	LongMA  float64   `json:"ma_long"`
	Signal  string    `json:"signal"`
}

// Report is the result of one run
type Report struct {
	ID              string                 `json:"id"`
	Symbol          string                 `json:"symbol"`
	Strategy        string                 `json:"strategy"`
	From            time.Time              `json:"from"`
	To              time.Time              `json:"to"`
	CreatedAt       time.Time              `json:"created_at"`
	Params          indicator.Params       `json:"params"`
	Observations    int                    `json:"observations"`
	NoData          bool                   `json:"no_data,omitempty"`
	Message         string                 `json:"message,omitempty"`
	Rows            []Row                  `json:"rows"`
	LastSignals     []Row                  `json:"last_signals"`
	TradeLog        []string               `json:"trade_log"`
	Trades          []backtest.TradeRecord `json:"trades"`
	OpenPosition    *backtest.Position     `json:"open_position,omitempty"`
	StartingBalance decimal.Decimal        `json:"starting_balance"`
	Wallet          decimal.Decimal        `json:"wallet"`
	Stats           backtest.Stats         `json:"stats"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// Meta identifies a run
type Meta struct {
	Symbol       string
	Strategy     string
	From         time.Time
	To           time.Time
	Params       indicator.Params
	Observations int
	Tail         int
}

// New builds a report from classified rows and a simulation result
func New(meta Meta, rows []strategy.ClassifiedRow, result *backtest.Result) *Report {
	n := meta.Tail
	if n <= 0 {
		n = DefaultTail
	}

	r := newReport(meta)
	r.Rows = make([]Row, len(rows))
	for i, cr := range rows {
		r.Rows[i] = Row{
			Time:    cr.Time,
			Close:   cr.Close,
			RSI:     cr.RSI,
			MACD:    cr.MACD,
			ShortMA: cr.ShortMA,
			LongMA:  cr.LongMA,
			Signal:  cr.Signal.String(),
		}
	}
	r.LastSignals = lastRows(r.Rows, n)

	if result != nil {
		r.TradeLog = result.Tail(n)
		r.Trades = result.Trades
		r.OpenPosition = result.Position
		r.StartingBalance = result.StartingBalance
		r.Wallet = result.Wallet
		r.Stats = result.Stats
		r.Warnings = result.Warnings
	}

	return r
}

// Empty builds the report for a run whose source returned no data. The
// wallet is reported unchanged.
func Empty(meta Meta, startingBalance decimal.Decimal) *Report {
	r := newReport(meta)
	r.NoData = true
	r.Message = NoDataMessage
	r.StartingBalance = startingBalance
	r.Wallet = startingBalance
	return r
}

func newReport(meta Meta) *Report {
	return &Report{
		ID:           uuid.NewString(),
		Symbol:       meta.Symbol,
		Strategy:     meta.Strategy,
		From:         meta.From,
		To:           meta.To,
		CreatedAt:    time.Now().UTC(),
		Params:       meta.Params,
		Observations: meta.Observations,
		Rows:         []Row{},
		LastSignals:  []Row{},
		TradeLog:     []string{},
		Trades:       []backtest.TradeRecord{},
	}
}

func lastRows(rows []Row, n int) []Row {
	if n >= len(rows) {
		n = len(rows)
	}
	out := make([]Row, n)
	copy(out, rows[len(rows)-n:])
	return out
}

// Summary is the listing view of a report
type Summary struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Strategy  string          `json:"strategy"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	CreatedAt time.Time       `json:"created_at"`
	Trades    int             `json:"trades"`
	Wallet    decimal.Decimal `json:"wallet"`
	NoData    bool            `json:"no_data,omitempty"`
}

// Summarize returns the listing view
func (r *Report) Summarize() Summary {
	return Summary{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Strategy:  r.Strategy,
		From:      r.From,
		To:        r.To,
		CreatedAt: r.CreatedAt,
		Trades:    len(r.Trades),
		Wallet:    r.Wallet,
		NoData:    r.NoData,
	}
}
