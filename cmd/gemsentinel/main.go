package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "gemsentinel"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   appName,
		Short: "GEM (12-1) dual momentum signal",
		Long: `GEMSentinel ranks a universe of instruments by their 12-1 momentum and emits
either "buy the leading risk asset" or "flee to the best safe haven".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultPath, "Path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "Override data_source.provider (yahoo|alpaca|vstrader|mock)")

	root.AddCommand(newRunCmd(opts), newWindowCmd(opts), newServeCmd(opts))
	return root
}
