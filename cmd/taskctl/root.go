package main

import (
	"fmt"

	"familytasks/internal/app"
	"familytasks/internal/config"
	"familytasks/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "taskctl",
	Short:        "Administer the household daily task engine",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.App.LogLevel = logLevel
		}
		cfg = c
		log = logger.NewLogger(cfg.App.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// components builds the store-backed engine. Commands that only talk HTTP skip it.
func components() (*app.Components, error) {
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("taskctl is running against the in-memory store; nothing will persist")
	}
	c, err := app.Build(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init components: %w", err)
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level (debug, info, warn, error)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(familiesCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(outboxCmd)
}
