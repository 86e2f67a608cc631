package main

import (
	"fmt"
	"os"

	"github.com/muxable/nfchci/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	device     string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "hcipipe",
	Short:        "Manage HCI pipes on a PN544 NFC controller",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if device != "" {
			cfg.Device = device
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the TOML config file (default $HCIPIPE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&device, "device", "", "controller device node (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log every HCP message")

	rootCmd.AddCommand(bringupCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(closeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
