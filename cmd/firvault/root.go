package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ruslano69/firvault/internal/infra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Dev        bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "firvault",
		Short:         "FIR records service with primary/fallback data access",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to firvault.yaml (optional)")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "dev mode: sqlite fallback + in-process miniredis")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newAllocateCommand(opts))
	cmd.AddCommand(newStationCommand(opts))
	cmd.AddCommand(newQueryCommand(opts))

	return cmd
}

// setup loads the config, configures the global logger and wires infrastructure.
func setup(ctx context.Context, opts *rootOptions) (*infra.Config, *infra.Infra, zerolog.Logger, error) {
	cfg, err := infra.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	logger, err := infra.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	log.Logger = logger

	if opts.Dev {
		logger.Warn().Msg("DEV MODE: sqlite fallback + in-process miniredis, do not use in production")
	}

	inf, err := infra.Setup(ctx, cfg, opts.Dev, logger)
	if err != nil {
		return nil, nil, logger, err
	}
	return cfg, inf, logger, nil
}
