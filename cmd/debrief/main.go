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
	Use:   "debrief",
	Short: "DeBrief - watchlist alert engine",
	Long: `DeBrief monitors a watchlist of tickers against configurable signal
rules (news, filings, price moves, momentum, macro calendar) and pushes
deduplicated alerts to a Telegram chat, which also accepts commands.`,
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
