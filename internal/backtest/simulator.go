package backtest

import (
	"context"
	"fmt"

	"github.com/newthinker/signalbot/internal/core"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// AlertSink receives one text message per trade event. Delivery is best
// effort: an error is recorded as a warning and the run continues.
type AlertSink interface {
	Alert(ctx context.Context, message string) error
}

// AlertFunc adapts a function to AlertSink
type AlertFunc func(ctx context.Context, message string) error

func (f AlertFunc) Alert(ctx context.Context, message string) error {
	return f(ctx, message)
}

// Simulator replays classified rows against a single-position wallet
type Simulator struct {
	sink   AlertSink
	logger *zap.Logger
}

// New creates a simulator. A nil sink disables alerts.
func New(sink AlertSink, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		sink:   sink,
		logger: logger,
	}
}

// Simulate processes rows in order against sim and returns the final
// state. A position still open when the rows run out stays open.
// On cancellation it returns ctx.Err() and sim reflects every row
// processed before it.
func (s *Simulator) Simulate(ctx context.Context, sim *Context, rows []SignalRow) (*Result, error) {
	if sim == nil {
		return nil, core.WrapError(core.ErrSimulationFailed, fmt.Errorf("nil simulation context"))
	}

	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		switch {
		case row.Signal == core.ActionBuy && !sim.IsOpen():
			s.open(ctx, sim, row)
		case row.Signal == core.ActionSell && sim.IsOpen():
			s.close(ctx, sim, row)
		}
	}

	return sim.result(), nil
}

func (s *Simulator) open(ctx context.Context, sim *Context, row SignalRow) {
	price := decimal.NewFromFloat(row.Close)
	sim.Position = &Position{
		EntryPrice: price,
		EntryTime:  row.Time,
	}

	sim.Log = append(sim.Log, fmt.Sprintf("BUY at %s on %s", price.StringFixed(2), row.Time.Format(dateLayout)))

	s.logger.Debug("position opened",
		zap.String("symbol", sim.Symbol),
		zap.String("price", price.StringFixed(2)),
		zap.Time("time", row.Time),
	)

	s.alert(ctx, sim, row, fmt.Sprintf("🟢 BOT BUY: %s at $%s", sim.Symbol, price.StringFixed(2)))
}

func (s *Simulator) close(ctx context.Context, sim *Context, row SignalRow) {
	exit := decimal.NewFromFloat(row.Close)
	pos := sim.Position
	profit := exit.Sub(pos.EntryPrice).Mul(sim.UnitSize)

	sim.Trades = append(sim.Trades, TradeRecord{
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  exit,
		ExitTime:   row.Time,
		Units:      sim.UnitSize,
		Profit:     profit,
	})
	sim.Wallet = sim.Wallet.Add(profit)
	sim.Position = nil

	sim.Log = append(sim.Log, fmt.Sprintf("SELL at %s on %s | P/L: %s",
		exit.StringFixed(2), row.Time.Format(dateLayout), profit.StringFixed(2)))

	s.logger.Debug("position closed",
		zap.String("symbol", sim.Symbol),
		zap.String("price", exit.StringFixed(2)),
		zap.String("profit", profit.StringFixed(2)),
		zap.String("wallet", sim.Wallet.StringFixed(2)),
	)

	s.alert(ctx, sim, row, fmt.Sprintf("🔴 BOT SELL: %s at $%s | P/L: %s",
		sim.Symbol, exit.StringFixed(2), profit.StringFixed(2)))
}

func (s *Simulator) alert(ctx context.Context, sim *Context, row SignalRow, message string) {
	if s.sink == nil {
		return
	}
	if !sim.AlertAfter.IsZero() && !row.Time.After(sim.AlertAfter) {
		return
	}
	if err := s.sink.Alert(ctx, message); err != nil {
		werr := core.WrapError(core.ErrNotifierFailed, err)
		s.logger.Warn("alert delivery failed", zap.String("symbol", sim.Symbol), zap.Error(werr))
		sim.Warnings = append(sim.Warnings, werr.Error())
	}
}
