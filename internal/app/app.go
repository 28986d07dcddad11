package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/signalbot/internal/alert"
	"github.com/newthinker/signalbot/internal/backtest"
	"github.com/newthinker/signalbot/internal/collector"
	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/newthinker/signalbot/internal/metrics"
	"github.com/newthinker/signalbot/internal/notifier"
	"github.com/newthinker/signalbot/internal/report"
	"github.com/newthinker/signalbot/internal/router"
	"github.com/newthinker/signalbot/internal/storage/archive"
	reportstore "github.com/newthinker/signalbot/internal/storage/report"
	"github.com/newthinker/signalbot/internal/strategy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RunRequest describes one analysis run
type RunRequest struct {
	Symbol          string
	From            time.Time
	To              time.Time
	Interval        string
	Strategy        string
	StartingBalance decimal.Decimal
	Tail            int

	// Alerts sends trade alerts to the notifiers
	Alerts bool
	// AlertAfter limits alerts to events after this time
	AlertAfter time.Time
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	indicators *indicator.Engine
	strategies *strategy.Engine
	notifiers  *notifier.Registry
	router     *router.Router
	store      reportstore.Store
	archiver   *archive.ReportArchiver
	metrics    *metrics.Registry
	rules      *alert.Evaluator

	symbols    []string
	watermarks map[string]time.Time // last bar seen per symbol by the refresh loop

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	runs    int
	lastRun time.Time
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	indicators, err := indicator.NewEngine(cfg.Indicators.Params)
	if err != nil {
		return nil, err
	}

	notifiers := notifier.NewRegistry()
	r := router.New(router.Config{SendTimeout: cfg.Router.SendTimeout}, notifiers, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		indicators: indicators,
		strategies: strategy.NewEngine(logger),
		notifiers:  notifiers,
		router:     r,
		store:      reportstore.NewMemoryStore(cfg.Storage.MaxReports),
		symbols:    append([]string(nil), cfg.Run.Symbols...),
		watermarks: make(map[string]time.Time),
	}, nil
}

// RegisterCollector adds a collector to the app
func (a *App) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
}

// RegisterStrategy adds a strategy to the app
func (a *App) RegisterStrategy(s strategy.Strategy) {
	a.strategies.Register(s)
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// SetArchiver enables cold archiving of reports
func (a *App) SetArchiver(ar *archive.ReportArchiver) {
	a.archiver = ar
}

// SetStore replaces the report store
func (a *App) SetStore(s reportstore.Store) {
	a.store = s
}

// SetMetrics enables metrics recording
func (a *App) SetMetrics(m *metrics.Registry) {
	a.metrics = m
	a.router.SetRecorder(m)
}

// SetRules enables rule alerts on finished runs. Rule notifications go
// out through the same notifiers as trade alerts.
func (a *App) SetRules(rules []alert.Rule, cooldown time.Duration) {
	if len(rules) == 0 {
		a.rules = nil
		return
	}
	e := alert.NewEvaluator(a.router, rules, a.logger)
	if cooldown > 0 {
		e.SetCooldown(cooldown)
	}
	a.rules = e
}

// Store returns the report store
func (a *App) Store() reportstore.Store {
	return a.store
}

// Strategies returns the registered strategy names
func (a *App) Strategies() []string {
	return a.strategies.Names()
}

// Symbols returns the symbols offered for analysis
func (a *App) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.symbols...)
}

// SetSymbols replaces the symbols refreshed by Start
func (a *App) SetSymbols(symbols []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.symbols = append([]string(nil), symbols...)
}

// DefaultRequest builds a request for symbol from the run configuration
func (a *App) DefaultRequest(symbol string, now time.Time) (RunRequest, error) {
	from, to, err := a.cfg.Run.Range(now)
	if err != nil {
		return RunRequest{}, err
	}
	if symbol == "" {
		symbol = a.cfg.Run.Symbol
	}
	return RunRequest{
		Symbol:          symbol,
		From:            from,
		To:              to,
		Interval:        a.cfg.Run.Interval,
		Strategy:        a.cfg.Run.Strategy,
		StartingBalance: decimal.NewFromFloat(a.cfg.Run.StartingBalance),
		Tail:            a.cfg.Run.Tail,
		Alerts:          true,
	}, nil
}

func (a *App) normalize(req *RunRequest) error {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return core.WrapError(core.ErrInvalidParams, errors.New("symbol is required"))
	}
	if !req.From.Before(req.To) {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("from %s must be before to %s", req.From.Format(config.DateLayout), req.To.Format(config.DateLayout)))
	}
	if req.Interval == "" {
		req.Interval = "1d"
	}
	if req.Strategy == "" {
		req.Strategy = a.cfg.Run.Strategy
	}
	if _, ok := a.strategies.Get(req.Strategy); !ok {
		return core.WrapError(core.ErrInvalidParams, fmt.Errorf("unknown strategy %q", req.Strategy))
	}
	if req.StartingBalance.IsZero() {
		req.StartingBalance = backtest.DefaultStartingBalance
	}
	if req.Tail <= 0 {
		req.Tail = report.DefaultTail
	}
	return nil
}

// Run fetches history for one symbol, computes indicators, classifies
// each row, simulates the wallet and stores the resulting report. A
// source with no data yields an empty report, not an error.
func (a *App) Run(ctx context.Context, req RunRequest) (*report.Report, error) {
	start := time.Now()
	rep, err := a.run(ctx, req)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case rep.NoData:
		status = "no_data"
	}
	if a.metrics != nil {
		a.metrics.RecordRun(status, time.Since(start).Seconds())
	}

	a.mu.Lock()
	a.runs++
	a.lastRun = time.Now()
	a.mu.Unlock()

	return rep, err
}

func (a *App) run(ctx context.Context, req RunRequest) (*report.Report, error) {
	if err := a.normalize(&req); err != nil {
		return nil, err
	}

	c, err := a.collectors.Lookup(a.cfg.Collector.Provider)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	bars, err := c.FetchHistory(ctx, req.Symbol, req.From, req.To, req.Interval)
	if err != nil {
		a.logger.Warn("fetch failed", zap.String("symbol", req.Symbol), zap.Error(err))
		return nil, err
	}
	bars = core.NormalizeSeries(bars)

	meta := report.Meta{
		Symbol:       req.Symbol,
		Strategy:     req.Strategy,
		From:         req.From,
		To:           req.To,
		Params:       a.indicators.Params(),
		Observations: len(bars),
		Tail:         req.Tail,
	}

	if len(bars) == 0 {
		a.logger.Info("no data for symbol", zap.String("symbol", req.Symbol))
		rep := report.Empty(meta, req.StartingBalance)
		a.save(ctx, rep)
		return rep, nil
	}

	rows := a.indicators.Compute(core.ClosePoints(bars))

	classified, err := a.strategies.Classify(ctx, req.Strategy, rows)
	if err != nil {
		return nil, err
	}
	a.recordRows(classified)

	signalRows := make([]backtest.SignalRow, len(classified))
	for i, row := range classified {
		signalRows[i] = backtest.SignalRow{Time: row.Time, Close: row.Close, Signal: row.Signal}
	}

	var sink backtest.AlertSink
	if req.Alerts {
		sink = a.router
	}
	sim := backtest.NewContext(req.Symbol, req.StartingBalance)
	sim.AlertAfter = req.AlertAfter

	result, err := backtest.New(sink, a.logger).Simulate(ctx, sim, signalRows)
	if err != nil {
		return nil, err
	}
	a.recordResult(result)

	rep := report.New(meta, classified, result)
	a.save(ctx, rep)

	if a.rules != nil && req.Alerts {
		if fired := a.rules.EvaluateAll(ctx, req.Symbol, alert.Values(rep)); len(fired) > 0 {
			a.logger.Info("alert rules fired", zap.String("symbol", req.Symbol), zap.Strings("rules", fired))
		}
	}

	a.logger.Info("run complete",
		zap.String("id", rep.ID),
		zap.String("symbol", req.Symbol),
		zap.String("strategy", req.Strategy),
		zap.Int("observations", len(bars)),
		zap.Int("rows", len(classified)),
		zap.Int("trades", len(result.Trades)),
		zap.String("wallet", result.Wallet.StringFixed(2)),
		zap.Int("warnings", len(result.Warnings)),
	)

	return rep, nil
}

// save stores and archives a report. Archive failures become report
// warnings.
func (a *App) save(ctx context.Context, rep *report.Report) {
	if a.archiver != nil {
		if err := a.archiver.Archive(ctx, rep); err != nil {
			a.logger.Error("archive failed", zap.String("id", rep.ID), zap.Error(err))
			rep.Warnings = append(rep.Warnings, err.Error())
		}
	}

	if a.store != nil {
		if err := a.store.Save(ctx, rep); err != nil {
			a.logger.Error("failed to store report", zap.String("id", rep.ID), zap.Error(err))
		}
		if a.metrics != nil {
			if n, err := a.store.Count(ctx, reportstore.ListFilter{}); err == nil {
				a.metrics.SetReportsStored(n)
			}
		}
	}
}

func (a *App) recordRows(rows []strategy.ClassifiedRow) {
	if a.metrics == nil {
		return
	}
	counts := make(map[core.Action]int)
	for _, row := range rows {
		counts[row.Signal]++
	}
	for action, n := range counts {
		a.metrics.RecordRows(string(action), n)
	}
}

func (a *App) recordResult(result *backtest.Result) {
	if a.metrics == nil {
		return
	}
	buys := len(result.Trades)
	if result.Position != nil {
		buys++
	}
	for i := 0; i < buys; i++ {
		a.metrics.RecordTrade("buy")
	}
	for range result.Trades {
		a.metrics.RecordTrade("sell")
	}
	wallet, _ := result.Wallet.Float64()
	a.metrics.SetWalletBalance(result.Symbol, wallet)
}

// Start runs the refresh loop until ctx is cancelled or Stop is called.
// The first cycle primes each symbol without alerting; later cycles
// alert only on bars newer than the previous cycle.
func (a *App) Start(ctx context.Context) error {
	interval := a.cfg.Run.Refresh
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.logger.Info("signalbot refresh loop starting",
		zap.Strings("symbols", a.Symbols()),
		zap.Duration("interval", interval),
	)

	// Initial run
	a.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("signalbot refresh loop stopping")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// Stop stops the refresh loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce performs a single refresh cycle over all symbols
func (a *App) RunOnce(ctx context.Context) {
	for _, symbol := range a.Symbols() {
		if ctx.Err() != nil {
			return
		}

		req, err := a.DefaultRequest(symbol, time.Now())
		if err != nil {
			a.logger.Error("invalid run window", zap.Error(err))
			return
		}

		a.mu.RLock()
		mark, primed := a.watermarks[req.Symbol]
		a.mu.RUnlock()

		req.Alerts = primed
		req.AlertAfter = mark

		rep, err := a.Run(ctx, req)
		if err != nil {
			a.logger.Error("refresh failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}

		a.mu.Lock()
		if len(rep.Rows) > 0 {
			a.watermarks[req.Symbol] = rep.Rows[len(rep.Rows)-1].Time
		} else if !primed {
			a.watermarks[req.Symbol] = time.Time{}
		}
		a.mu.Unlock()
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":    a.running,
		"runs":       a.runs,
		"last_run":   a.lastRun,
		"symbols":    len(a.symbols),
		"collectors": a.collectors.Names(),
		"strategies": a.strategies.Names(),
		"notifiers":  a.notifiers.Len(),
		"router":     a.router.GetStats(),
	}
}
