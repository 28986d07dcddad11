package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/signalbot/internal/alert"
	"github.com/newthinker/signalbot/internal/collector"
	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/metrics"
	"github.com/newthinker/signalbot/internal/notifier"
	"github.com/newthinker/signalbot/internal/storage/archive"
	reportstore "github.com/newthinker/signalbot/internal/storage/report"
	"github.com/newthinker/signalbot/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

type mockCollector struct {
	name    string
	mu      sync.Mutex
	history []core.OHLCV
	err     error
	calls   int
}

func (m *mockCollector) Name() string                    { return m.name }
func (m *mockCollector) Init(cfg collector.Config) error { return nil }
func (m *mockCollector) FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.history, m.err
}

func (m *mockCollector) set(bars []core.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = bars
}

// thresholdStrategy buys below buyBelow and sells at or above sellAt
type thresholdStrategy struct {
	buyBelow float64
	sellAt   float64
}

func (s *thresholdStrategy) Name() string                   { return "threshold" }
func (s *thresholdStrategy) Description() string            { return "mock" }
func (s *thresholdStrategy) Init(cfg strategy.Config) error { return nil }
func (s *thresholdStrategy) Classify(row indicator.Row) strategy.Classification {
	switch {
	case row.Close < s.buyBelow:
		return strategy.Classification{Action: core.ActionBuy, Valid: true}
	case row.Close >= s.sellAt:
		return strategy.Classification{Action: core.ActionSell, Valid: true}
	}
	return strategy.Classification{Action: core.ActionHold, Valid: true}
}

type mockNotifier struct {
	mu       sync.Mutex
	received []string
	err      error
}

func (m *mockNotifier) Name() string                   { return "mock" }
func (m *mockNotifier) Init(cfg notifier.Config) error { return nil }
func (m *mockNotifier) Send(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, message)
	return m.err
}

func (m *mockNotifier) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.received...)
}

func bars(symbol string, closes ...float64) []core.OHLCV {
	out := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = core.OHLCV{Symbol: symbol, Interval: "1d", Close: c, Time: day0.AddDate(0, 0, i)}
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Indicators.Params = indicator.Params{
		RSIPeriod:  2,
		MACDFast:   2,
		MACDSlow:   3,
		MACDSignal: 2,
		ShortMA:    2,
		LongMA:     3,
	}
	cfg.Collector.Provider = "mock"
	cfg.Run.Strategy = "threshold"
	return cfg
}

func newTestApp(t *testing.T, history []core.OHLCV) (*App, *mockCollector) {
	t.Helper()
	a, err := New(testConfig(), nil)
	require.NoError(t, err)

	c := &mockCollector{name: "mock", history: history}
	a.RegisterCollector(c)
	a.RegisterStrategy(&thresholdStrategy{buyBelow: 105, sellAt: 108})
	return a, c
}

func request(symbol string) RunRequest {
	return RunRequest{
		Symbol:          symbol,
		From:            day0,
		To:              day0.AddDate(0, 1, 0),
		StartingBalance: decimal.NewFromInt(10000),
		Alerts:          true,
	}
}

func TestApp_New(t *testing.T) {
	a, err := New(nil, nil)
	require.NoError(t, err)

	stats := a.GetStats()
	assert.False(t, stats["running"].(bool), "new app should not be running")
	assert.Equal(t, 0, stats["runs"])
}

func TestApp_NewInvalidParams(t *testing.T) {
	cfg := config.Defaults()
	cfg.Indicators.ShortMA = 300

	_, err := New(cfg, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidParams))
}

func TestApp_Run(t *testing.T) {
	a, _ := newTestApp(t, bars("BTC-USD", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	n := &mockNotifier{}
	require.NoError(t, a.RegisterNotifier(n))

	rep, err := a.Run(context.Background(), request("btc-usd"))
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", rep.Symbol)
	assert.Equal(t, "threshold", rep.Strategy)
	assert.Equal(t, 10, rep.Observations)
	assert.False(t, rep.NoData)
	assert.NotEmpty(t, rep.ID)

	require.Len(t, rep.Trades, 1)
	trade := rep.Trades[0]
	assert.True(t, trade.ExitPrice.Equal(decimal.NewFromInt(108)))
	assert.True(t, rep.Wallet.Equal(decimal.NewFromInt(10000).Add(trade.Profit)))
	assert.Nil(t, rep.OpenPosition)

	msgs := n.messages()
	require.Len(t, msgs, 2)
	assert.True(t, strings.HasPrefix(msgs[0], "🟢 BOT BUY: BTC-USD at $"))
	assert.True(t, strings.HasPrefix(msgs[1], "🔴 BOT SELL: BTC-USD at $108"))

	stored, err := a.Store().GetByID(context.Background(), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, stored.ID)
}

func TestApp_RunWithoutAlerts(t *testing.T) {
	a, _ := newTestApp(t, bars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	n := &mockNotifier{}
	require.NoError(t, a.RegisterNotifier(n))

	req := request("AAPL")
	req.Alerts = false
	rep, err := a.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, rep.Trades, 1)
	assert.Empty(t, n.messages())
}

func TestApp_RunNotifierFailureIsWarning(t *testing.T) {
	a, _ := newTestApp(t, bars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	require.NoError(t, a.RegisterNotifier(&mockNotifier{err: errors.New("boom")}))

	rep, err := a.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)

	assert.Len(t, rep.Trades, 1)
	assert.Len(t, rep.Warnings, 2)
}

func TestApp_RunNoData(t *testing.T) {
	a, _ := newTestApp(t, nil)

	rep, err := a.Run(context.Background(), request("TSLA"))
	require.NoError(t, err)

	assert.True(t, rep.NoData)
	assert.Empty(t, rep.Rows)
	assert.Empty(t, rep.Trades)
	assert.True(t, rep.Wallet.Equal(decimal.NewFromInt(10000)))

	n, err := a.Store().Count(context.Background(), reportstore.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApp_RunTooShortForIndicators(t *testing.T) {
	a, _ := newTestApp(t, bars("TSLA", 100, 101))

	rep, err := a.Run(context.Background(), request("TSLA"))
	require.NoError(t, err)

	assert.False(t, rep.NoData)
	assert.Equal(t, 2, rep.Observations)
	assert.Empty(t, rep.Rows)
	assert.Empty(t, rep.Trades)
}

func TestApp_RunCollectorError(t *testing.T) {
	a, c := newTestApp(t, nil)
	c.err = core.WrapError(core.ErrSymbolNotFound, errors.New("nope"))

	_, err := a.Run(context.Background(), request("NOPE"))
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
}

func TestApp_RunValidation(t *testing.T) {
	a, _ := newTestApp(t, nil)

	tests := []struct {
		name   string
		modify func(r *RunRequest)
	}{
		{"empty symbol", func(r *RunRequest) { r.Symbol = " " }},
		{"reversed range", func(r *RunRequest) { r.From, r.To = r.To, r.From }},
		{"equal range", func(r *RunRequest) { r.To = r.From }},
		{"unknown strategy", func(r *RunRequest) { r.Strategy = "nope" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("AAPL")
			tt.modify(&req)
			_, err := a.Run(context.Background(), req)
			assert.True(t, errors.Is(err, core.ErrInvalidParams), "got %v", err)
		})
	}
}

func TestApp_RunUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Collector.Provider = "missing"
	a, err := New(cfg, nil)
	require.NoError(t, err)
	a.RegisterStrategy(&thresholdStrategy{buyBelow: 105, sellAt: 108})

	_, err = a.Run(context.Background(), request("AAPL"))
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestApp_RunArchives(t *testing.T) {
	a, _ := newTestApp(t, bars("ETH-USD", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))

	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ar := archive.NewReportArchiver(fs, nil)
	a.SetArchiver(ar)

	rep, err := a.Run(context.Background(), request("ETH-USD"))
	require.NoError(t, err)

	loaded, err := ar.Load(context.Background(), archive.ReportPath(rep, "json"))
	require.NoError(t, err)
	assert.Equal(t, rep.ID, loaded.ID)
	assert.Equal(t, "ETH-USD", loaded.Symbol)
}

func TestApp_RunRecordsMetrics(t *testing.T) {
	a, _ := newTestApp(t, bars("ETH-USD", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	a.SetMetrics(metrics.NewRegistry())

	_, err := a.Run(context.Background(), request("ETH-USD"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.GetStats()["runs"])
}

func TestApp_DefaultRequest(t *testing.T) {
	a, _ := newTestApp(t, nil)

	req, err := a.DefaultRequest("", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", req.Symbol)
	assert.Equal(t, "threshold", req.Strategy)
	assert.Equal(t, "2023-01-01", req.From.Format(config.DateLayout))
	assert.Equal(t, "2024-01-01", req.To.Format(config.DateLayout))
	assert.True(t, req.StartingBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, req.Alerts)
}

func TestApp_SetSymbols(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.SetSymbols([]string{"AAPL", "TSLA"})
	assert.Equal(t, []string{"AAPL", "TSLA"}, a.Symbols())
}

func TestApp_RunOnceAlertsOnlyOnNewBars(t *testing.T) {
	a, c := newTestApp(t, bars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	a.cfg.Run.Start = day0.Format(config.DateLayout)
	a.cfg.Run.End = day0.AddDate(0, 1, 0).Format(config.DateLayout)
	a.SetSymbols([]string{"AAPL"})
	n := &mockNotifier{}
	require.NoError(t, a.RegisterNotifier(n))

	// First cycle primes the watermark silently
	a.RunOnce(context.Background())
	assert.Empty(t, n.messages())

	// Nothing new
	a.RunOnce(context.Background())
	assert.Empty(t, n.messages())

	// A new bar dips and triggers a buy
	c.set(bars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109, 100))
	a.RunOnce(context.Background())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "🟢 BOT BUY: AAPL at $100"))
}

func TestApp_StartStop(t *testing.T) {
	a, c := newTestApp(t, bars("AAPL", 100, 101, 102, 103))
	a.cfg.Run.Refresh = 10 * time.Millisecond
	a.SetSymbols([]string{"AAPL"})

	done := make(chan error, 1)
	go func() {
		done <- a.Start(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	a.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Greater(t, c.calls, 1)
}

func TestApp_StartRequiresRefresh(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.cfg.Run.Refresh = 0
	assert.Error(t, a.Start(context.Background()))
}

func TestApp_CannotStartTwice(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.cfg.Run.Refresh = time.Hour
	a.SetSymbols(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Start(ctx)

	require.Eventually(t, func() bool {
		return a.GetStats()["running"].(bool)
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, a.Start(ctx))
}

func TestApp_RunEvaluatesRules(t *testing.T) {
	a, _ := newTestApp(t, bars("AAPL", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109))
	n := &mockNotifier{}
	require.NoError(t, a.RegisterNotifier(n))
	a.SetRules([]alert.Rule{
		{Name: "one_trade", Expr: "trades == 1", Severity: "info", Message: "Closed a trade"},
		{Name: "losing", Expr: "profit < 0", Message: "Losing"},
	}, time.Hour)

	_, err := a.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)

	msgs := n.messages()
	require.Len(t, msgs, 3)
	assert.True(t, strings.HasPrefix(msgs[2], "[INFO] one_trade AAPL: Closed a trade"))

	// Cooldown holds the rule on the next run
	_, err = a.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)
	assert.Len(t, n.messages(), 5)
}
