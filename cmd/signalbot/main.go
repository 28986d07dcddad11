package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "signalbot",
	Short: "signalbot - trend/momentum signal bot with a simulated wallet",
	Long: `signalbot fetches daily price history, computes RSI, MACD and moving
averages, classifies every day as BUY, SELL or HOLD and replays the signals
against a simulated wallet, alerting on each trade.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
