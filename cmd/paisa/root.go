package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"paisamarket/internal/app"
	"paisamarket/internal/config"
	"paisamarket/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	asJSON     bool

	// newApp builds the wiring on first use; tests replace it.
	newApp func(configPath, logLevel string) (*app.App, error)
	app    *app.App
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootOptions{newApp: loadApp})
}

func buildRootCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "paisa",
		Short:         "Query crypto market data through the provider fallback chain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.configPath, "config", os.Getenv("CONFIG_FILE"), "config file path (default: ./config.yaml)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&o.asJSON, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newQuoteCmd(o),
		newDetailCmd(o),
		newMarketsCmd(o),
		newHistoryCmd(o),
		newProbeCmd(o),
		newProvidersCmd(o),
		newNewsCmd(o),
	)
	return cmd
}

func (o *rootOptions) App() (*app.App, error) {
	if o.app != nil {
		return o.app, nil
	}
	a, err := o.newApp(o.configPath, o.logLevel)
	if err != nil {
		return nil, err
	}
	o.app = a
	return a, nil
}

func loadApp(configPath, logLevel string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logging.New(level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log), nil
}

// commandContext bounds a command by the configured request timeout.
func commandContext(cmd *cobra.Command, a *app.App) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if d := a.Config.RequestTimeout(); d > 0 {
		// one timeout per provider in the chain
		return context.WithTimeout(ctx, d*time.Duration(len(a.Providers)+1))
	}
	return context.WithCancel(ctx)
}
