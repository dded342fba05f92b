package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "phbt",
		Short:        "Constant-product AMM ledger with paperhand tax",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("state", "./data/ledger.json", "ledger snapshot path")
	root.PersistentFlags().String("journal", "./data/events.jsonl", "event journal path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newCreatePoolCmd(),
		newFaucetCmd(),
		newSwapCmd("buy", "Buy tokens with currency"),
		newSwapCmd("sell", "Sell tokens for currency"),
		newAddLiquidityCmd(),
		newRemoveLiquidityCmd(),
		newSetConfigCmd(),
		newShowCmd(),
		newStatsCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
