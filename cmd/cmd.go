package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/subfrost/brc20shrew/internal/config"
	"github.com/subfrost/brc20shrew/pkg/logger"
	"github.com/subfrost/brc20shrew/pkg/logger/slogx"
)

var rootCmd = &cobra.Command{
	Use:  "brc20shrew",
	Long: `BRC20 indexer with inscription tracking and on-chain contract execution`,
}

func init() {
	var configFile string

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g. `./config.yaml`")
	flags.String("network", "mainnet", "network to connect to, E.g. `mainnet` or `testnet`")

	config.BindPFlag("network", flags.Lookup("network"))

	cobra.OnInitialize(func() {
		conf := config.Parse(configFile)

		if err := logger.Init(conf.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", conf.Logger))
		}
	})
}

func Execute(ctx context.Context) {
	rootCmd.AddCommand(
		NewRunCommand(),
		NewVersionCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Panic("Failed to execute root command", slogx.Error(err))
	}
}
