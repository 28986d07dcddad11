package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	runSymbol   string
	runFrom     string
	runTo       string
	runStrategy string
	runInterval string
	runBalance  float64
	runTail     int
	runNoAlerts bool
	runJSON     bool
	runCSV      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze a symbol and replay its signals against a simulated wallet",
	Long: `Fetch price history for a symbol, compute RSI, MACD and the moving
averages, classify each day and simulate one-unit trades. Prints the last
signals, the trade log and the final wallet balance.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runSymbol, "symbol", "s", "", "symbol to analyze (default from config)")
	runCmd.Flags().StringVar(&runFrom, "from", "", "start date YYYY-MM-DD (default from config)")
	runCmd.Flags().StringVar(&runTo, "to", "", "end date YYYY-MM-DD (default from config)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "strategy name (default from config)")
	runCmd.Flags().StringVar(&runInterval, "interval", "", "bar interval (default from config)")
	runCmd.Flags().Float64Var(&runBalance, "balance", 0, "starting wallet balance (default from config)")
	runCmd.Flags().IntVar(&runTail, "tail", 0, "number of signals and trade log lines to show")
	runCmd.Flags().BoolVar(&runNoAlerts, "no-alerts", false, "do not send trade alerts")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
	runCmd.Flags().StringVar(&runCSV, "csv", "", "write the indicator table to this CSV file")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	rt, err := setup(cfg, log)
	if err != nil {
		return err
	}

	req, err := rt.app.DefaultRequest(runSymbol, time.Now())
	if err != nil {
		return err
	}
	if runFrom != "" {
		if req.From, err = time.Parse(config.DateLayout, runFrom); err != nil {
			return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if runTo != "" {
		if req.To, err = time.Parse(config.DateLayout, runTo); err != nil {
			return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if runStrategy != "" {
		req.Strategy = runStrategy
	}
	if runInterval != "" {
		req.Interval = runInterval
	}
	if runBalance > 0 {
		req.StartingBalance = decimal.NewFromFloat(runBalance)
	}
	if runTail > 0 {
		req.Tail = runTail
	}
	req.Alerts = !runNoAlerts

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := rt.app.Run(ctx, req)
	if err != nil {
		return err
	}

	if runCSV != "" {
		if err := writeCSVFile(runCSV, rep); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if runJSON {
		return report.WriteJSON(out, rep)
	}
	return report.Render(out, rep)
}

func writeCSVFile(path string, rep *report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteCSV(f, rep.Rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
